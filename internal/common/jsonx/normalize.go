package jsonx

import "encoding/json"

// NormalizeFields re-parses the named fields of doc that arrived as JSON
// string primitives and replaces them in place with the decoded value.
// Fields that are already native objects or arrays, absent, or null are left
// untouched, so a second pass is a no-op. A string that fails to parse stays
// as-is; its name is returned so the caller can log it.
func NormalizeFields(doc map[string]interface{}, fields ...string) []string {
	var failed []string
	for _, field := range fields {
		raw, ok := doc[field]
		if !ok || raw == nil {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}

		var decoded interface{}
		if err := json.Unmarshal([]byte(str), &decoded); err != nil {
			failed = append(failed, field)
			continue
		}
		doc[field] = decoded
	}
	return failed
}
