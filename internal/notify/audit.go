package notify

import (
	"context"
	"encoding/json"
	"time"

	"ristorino-api/internal/common/database"
	"ristorino-api/internal/common/logger"
	"ristorino-api/internal/models"
)

// GapAuditor records clicks the remote endpoint accepted but the local
// confirmation did not land. Recovery is a manual re-run; the audit trail
// is what makes the gap visible to operations.
type GapAuditor interface {
	RecordGap(ctx context.Context, runID string, click models.PendingClick)
}

// gapDocument is the audit index entry.
type gapDocument struct {
	RunID               string    `json:"runId"`
	RestaurantID        int       `json:"nroRestaurante"`
	ContentID           int       `json:"nroContenido"`
	ClickID             int       `json:"nroClick"`
	ExternalContentCode string    `json:"codContenidoRestaurante"`
	ClickCost           float64   `json:"costoClick"`
	RecordedAt          time.Time `json:"recordedAt"`
}

// ElasticGapAuditor writes gap documents to an Elasticsearch index.
// Indexing is fire-and-forget: a failure is logged and never touches the
// batch outcome.
type ElasticGapAuditor struct {
	es    *database.ElasticsearchClient
	index string
	log   logger.Logger
}

func NewElasticGapAuditor(es *database.ElasticsearchClient, index string, log logger.Logger) *ElasticGapAuditor {
	return &ElasticGapAuditor{es: es, index: index, log: log}
}

func (a *ElasticGapAuditor) RecordGap(ctx context.Context, runID string, click models.PendingClick) {
	doc, err := json.Marshal(gapDocument{
		RunID:               runID,
		RestaurantID:        click.RestaurantID,
		ContentID:           click.ContentID,
		ClickID:             click.ClickID,
		ExternalContentCode: click.ExternalContentCode,
		ClickCost:           click.ClickCost,
		RecordedAt:          time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := a.es.Index(ctx, a.index, doc); err != nil {
		a.log.WithError(err).Warn("gap audit write failed", map[string]interface{}{
			"runId":   runID,
			"clickId": click.ClickID,
		})
	}
}

// NoOpGapAuditor drops gaps; used when no audit sink is configured.
type NoOpGapAuditor struct{}

func (NoOpGapAuditor) RecordGap(ctx context.Context, runID string, click models.PendingClick) {}
