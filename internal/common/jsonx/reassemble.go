// Package jsonx handles the two quirks of the stored-procedure JSON
// interface: documents fragmented across rows by the driver's column-size
// limit, and sub-documents that arrive double-encoded as JSON strings.
package jsonx

import (
	"database/sql"
	"strings"
)

// Reassemble concatenates the non-null fragments in input order and returns
// the resulting document text. Rows must already be in procedure output
// order; the split points carry no meaning and may fall mid-token. An empty
// or all-null input yields "".
func Reassemble(fragments []sql.NullString) string {
	var sb strings.Builder
	for _, f := range fragments {
		if f.Valid {
			sb.WriteString(f.String)
		}
	}
	return sb.String()
}

// ReassembleRows drains a single-column result set into the reassembled
// document text. The caller owns closing the rows.
func ReassembleRows(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) (string, error) {
	var sb strings.Builder
	for rows.Next() {
		var fragment sql.NullString
		if err := rows.Scan(&fragment); err != nil {
			return "", err
		}
		if fragment.Valid {
			sb.WriteString(fragment.String)
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
