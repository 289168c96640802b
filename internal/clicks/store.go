// Package clicks is the gateway to the click stored procedures. The
// procedures answer with JSON documents rendered as single-column result
// sets, fragmented across rows when they outgrow the column size, and with
// the click/contenido sub-objects sometimes double-encoded as strings.
package clicks

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ristorino-api/internal/common/database"
	"ristorino-api/internal/common/errors"
	"ristorino-api/internal/common/jsonx"
	"ristorino-api/internal/common/logger"
	"ristorino-api/internal/common/validation"
	"ristorino-api/internal/models"
)

const (
	procGetUnnotifiedClicks = "SELECT pa_obtener_clicks_no_notificados($1, $2, $3)"
	procConfirmClick        = "SELECT pa_confirmar_notificacion_click($1, $2, $3, $4)"
	procRegisterClick       = "SELECT pa_registrar_click($1, $2, $3, $4, $5)"
)

// pendingClickSchema checks a flattened click row before it is adapted to
// the typed model. Identifiers must be present; the rest is optional.
var pendingClickSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"nro_restaurante":           {Type: "number"},
		"nro_idioma":                {Type: "number"},
		"nro_contenido":             {Type: "number"},
		"nro_click":                 {Type: "number"},
		"nro_cliente":               {Type: "number"},
		"costo_click":               {Type: "number"},
		"cod_contenido_restaurante": {Type: "string"},
		"fecha_click":               {Type: "string"},
		"notificado":                {Type: "boolean"},
	},
	Required:             []string{"nro_restaurante", "nro_contenido", "nro_click"},
	AdditionalProperties: true,
}

// Store executes the click procedures over a SQL connection.
type Store struct {
	db  *database.PostgresClient
	log logger.Logger
}

func NewStore(db *database.PostgresClient, log logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// GetUnnotifiedClicks fetches the clicks still awaiting notification,
// optionally filtered. Nil filters pass through as SQL NULL. An empty
// document means nothing is pending.
func (s *Store) GetUnnotifiedClicks(ctx context.Context, restaurantID, languageID, contentID *int) ([]models.PendingClick, error) {
	doc, err := s.callProcedure(ctx, procGetUnnotifiedClicks, restaurantID, languageID, contentID)
	if err != nil {
		return nil, errors.NewProcedureExecutionFailedError("pa_obtener_clicks_no_notificados", err)
	}
	if doc == "" {
		return []models.PendingClick{}, nil
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &entries); err != nil {
		return nil, errors.NewDocumentParseFailedError("pa_obtener_clicks_no_notificados", err)
	}

	pending := make([]models.PendingClick, 0, len(entries))
	for _, entry := range entries {
		flat := s.flattenClickEntry(entry)

		if result := validation.ValidateInput(flat, pendingClickSchema); !result.Valid {
			rowErr := errors.NewClickRowInvalidError(strings.Join(result.GetErrorMessages(), "; "))
			s.log.WithError(rowErr).Warn("skipping malformed click row", map[string]interface{}{
				"clickId": flat["nro_click"],
			})
			continue
		}

		pending = append(pending, adaptPendingClick(flat))
	}

	return pending, nil
}

// ConfirmClickNotified marks one click as notified. It returns true iff the
// procedure reports an updated row; confirming an already confirmed click
// returns false without error, which keeps re-runs idempotent.
func (s *Store) ConfirmClickNotified(ctx context.Context, restaurantID int, languageID *int, contentID, clickID int) (bool, error) {
	doc, err := s.callProcedure(ctx, procConfirmClick, restaurantID, languageID, contentID, clickID)
	if err != nil {
		return false, errors.NewProcedureExecutionFailedError("pa_confirmar_notificacion_click", err)
	}
	if doc == "" {
		return false, nil
	}

	var result struct {
		Updated int `json:"actualizado"`
	}
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return false, errors.NewDocumentParseFailedError("pa_confirmar_notificacion_click", err)
	}

	return result.Updated > 0, nil
}

// RegisterClick records a new click and returns the procedure's response
// document. An empty response means the content id did not resolve to a
// restaurant and language, so nothing was registered. When the response is
// not valid JSON the raw text is returned under a "raw" key instead of
// failing the registration.
func (s *Store) RegisterClick(ctx context.Context, req models.ClickRequest) (map[string]interface{}, error) {
	var registeredAt interface{}
	if req.RegisteredAt != nil {
		registeredAt = req.RegisteredAt.UTC().Format(time.RFC3339)
	}

	doc, err := s.callProcedure(ctx, procRegisterClick,
		req.RestaurantID, req.LanguageID, req.ContentID, req.CustomerID, registeredAt)
	if err != nil {
		return nil, errors.NewProcedureExecutionFailedError("pa_registrar_click", err)
	}
	if doc == "" {
		return nil, errors.NewContentUnresolvedError(req.ContentID)
	}

	var response map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &response); err != nil {
		s.log.Warn("click registration response is not valid JSON", map[string]interface{}{
			"contentId": req.ContentID,
		})
		return map[string]interface{}{"raw": doc}, nil
	}

	if failed := jsonx.NormalizeFields(response, "click", "contenido"); len(failed) > 0 {
		s.log.Warn("could not normalize registration response fields", map[string]interface{}{
			"fields": failed,
		})
	}

	return response, nil
}

// callProcedure runs a procedure and reassembles its fragmented result.
func (s *Store) callProcedure(ctx context.Context, query string, args ...interface{}) (string, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	return jsonx.ReassembleRows(rows)
}

// flattenClickEntry merges the nested click and contenido sub-documents
// into one flat row, normalizing double-encoded strings first. Top-level
// keys win over nested ones.
func (s *Store) flattenClickEntry(entry map[string]interface{}) map[string]interface{} {
	if failed := jsonx.NormalizeFields(entry, "click", "contenido"); len(failed) > 0 {
		s.log.Warn("could not normalize click entry fields", map[string]interface{}{
			"fields": failed,
		})
	}

	flat := map[string]interface{}{}
	for _, key := range []string{"click", "contenido"} {
		if sub, ok := entry[key].(map[string]interface{}); ok {
			for k, v := range sub {
				flat[k] = v
			}
		}
	}
	for k, v := range entry {
		if k == "click" || k == "contenido" {
			continue
		}
		flat[k] = v
	}
	return flat
}

func adaptPendingClick(flat map[string]interface{}) models.PendingClick {
	return models.PendingClick{
		RestaurantID:        intField(flat, "nro_restaurante"),
		LanguageID:          optIntField(flat, "nro_idioma"),
		ContentID:           intField(flat, "nro_contenido"),
		ClickID:             intField(flat, "nro_click"),
		RegisteredAt:        timeField(flat, "fecha_click"),
		CustomerID:          optIntField(flat, "nro_cliente"),
		ClickCost:           floatField(flat, "costo_click"),
		ExternalContentCode: stringField(flat, "cod_contenido_restaurante"),
		Notified:            boolField(flat, "notificado"),
	}
}

func intField(m map[string]interface{}, key string) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return 0
}

func optIntField(m map[string]interface{}, key string) *int {
	if v, ok := m[key].(float64); ok {
		i := int(v)
		return &i
	}
	return nil
}

func floatField(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func boolField(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

func timeField(m map[string]interface{}, key string) *time.Time {
	v, ok := m[key].(string)
	if !ok || v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}
