// Package promo serves the promotional-content documents: the restaurant
// promotions list and the nested restaurant detail.
package promo

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"ristorino-api/internal/common/database"
	"ristorino-api/internal/common/errors"
	"ristorino-api/internal/common/jsonx"
	"ristorino-api/internal/common/logger"
	"ristorino-api/internal/models"
)

const (
	procGetPromotions       = "SELECT pa_obtener_promociones_restaurante($1, $2, $3)"
	procGetRestaurantDetail = "SELECT pa_obtener_detalle_restaurante($1, $2)"
)

var errInvalidJSON = stderrors.New("document is not valid JSON")

// Repository reads promotion documents from the stored procedures.
type Repository struct {
	db  *database.PostgresClient
	log logger.Logger
	now func() time.Time
}

func NewRepository(db *database.PostgresClient, log logger.Logger) *Repository {
	return &Repository{db: db, log: log, now: time.Now}
}

// GetRestaurantPromotions returns the restaurant's promotions document.
// onlyCurrent and branchID pass through to the procedure as SQL NULL when
// nil. A missing restaurant yields nil without error.
func (r *Repository) GetRestaurantPromotions(ctx context.Context, restaurantID int, onlyCurrent *bool, branchID *int) (*models.RestaurantPromotions, error) {
	doc, err := r.callProcedure(ctx, procGetPromotions, restaurantID, onlyCurrent, branchID)
	if err != nil {
		return nil, errors.NewProcedureExecutionFailedError("pa_obtener_promociones_restaurante", err)
	}
	if doc == "" {
		return nil, nil
	}

	var promotions models.RestaurantPromotions
	if err := json.Unmarshal([]byte(doc), &promotions); err != nil {
		return nil, errors.NewDocumentParseFailedError("pa_obtener_promociones_restaurante", err)
	}

	now := r.now()
	for i := range promotions.Contents {
		promotions.Contents[i].Current = promotions.Contents[i].CurrentAt(now)
	}

	return &promotions, nil
}

// GetRestaurantDetail returns the nested detail document as raw JSON, nil
// when the procedure yields nothing.
func (r *Repository) GetRestaurantDetail(ctx context.Context, restaurantID, languageID int) (json.RawMessage, error) {
	doc, err := r.callProcedure(ctx, procGetRestaurantDetail, restaurantID, languageID)
	if err != nil {
		return nil, errors.NewProcedureExecutionFailedError("pa_obtener_detalle_restaurante", err)
	}
	if doc == "" {
		return nil, nil
	}

	if !json.Valid([]byte(doc)) {
		return nil, errors.NewDocumentParseFailedError("pa_obtener_detalle_restaurante", errInvalidJSON)
	}

	return json.RawMessage(doc), nil
}

func (r *Repository) callProcedure(ctx context.Context, query string, args ...interface{}) (string, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	return jsonx.ReassembleRows(rows)
}
