// Package notify reconciles unnotified clicks against the external billing
// endpoint: fetch, validate, POST with a shared bearer token, confirm
// locally. Delivery is at-least-once; the local confirmation is the
// idempotency barrier.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ristorino-api/internal/common/errors"
	commonhttp "ristorino-api/internal/common/http"
	"ristorino-api/internal/common/logger"
	"ristorino-api/internal/common/metrics"
	"ristorino-api/internal/common/observability"
	"ristorino-api/internal/models"
)

// clickStore is the slice of the click gateway the notifier needs.
type clickStore interface {
	GetUnnotifiedClicks(ctx context.Context, restaurantID, languageID, contentID *int) ([]models.PendingClick, error)
	ConfirmClickNotified(ctx context.Context, restaurantID int, languageID *int, contentID, clickID int) (bool, error)
}

// tokenSource hands out a bearer token valid for at least one request.
type tokenSource interface {
	Token() (string, error)
}

// Notifier runs the reconciliation batches.
type Notifier struct {
	store          clickStore
	tokens         tokenSource
	client         *commonhttp.Client
	destinationURL string
	callTimeout    time.Duration
	auditor        GapAuditor
	obs            *observability.Observability
	log            logger.Logger
}

func NewNotifier(
	store clickStore,
	tokens tokenSource,
	client *commonhttp.Client,
	destinationURL string,
	callTimeout time.Duration,
	auditor GapAuditor,
	obs *observability.Observability,
	log logger.Logger,
) *Notifier {
	if auditor == nil {
		auditor = NoOpGapAuditor{}
	}
	return &Notifier{
		store:          store,
		tokens:         tokens,
		client:         client,
		destinationURL: destinationURL,
		callTimeout:    callTimeout,
		auditor:        auditor,
		obs:            obs,
		log:            log,
	}
}

// NotifyAllPending relays every unnotified click, optionally restricted to
// one restaurant. Records are processed sequentially in fetch order; a
// record failing never stops the ones behind it. Only a fetch or token
// error aborts the batch.
func (n *Notifier) NotifyAllPending(ctx context.Context, restaurantID *int) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: start.UTC(),
	}
	log := n.log.WithFields(map[string]interface{}{"runId": report.RunID})

	pending, err := n.store.GetUnnotifiedClicks(ctx, restaurantID, nil, nil)
	if err != nil {
		n.recordBatch(ctx, start, "fetch_error")
		return nil, err
	}

	if len(pending) == 0 {
		// Nothing to do: no token minted, no HTTP traffic
		report.FinishedAt = time.Now().UTC()
		n.recordBatch(ctx, start, "empty")
		log.Info("no unnotified clicks", nil)
		return report, nil
	}

	token, err := n.tokens.Token()
	if err != nil {
		n.recordBatch(ctx, start, "token_error")
		return nil, err
	}

	log.Info("notifying pending clicks", map[string]interface{}{
		"pending": len(pending),
	})

	for _, click := range pending {
		n.processClick(ctx, click, token, report, log)
	}

	report.FinishedAt = time.Now().UTC()
	metrics.NotifyBatchDuration.Observe(time.Since(start).Seconds())
	n.recordBatch(ctx, start, "completed")

	log.Info("notification batch finished", map[string]interface{}{
		"notified": report.Notified,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
		"gaps":     report.Gaps,
	})

	return report, nil
}

func (n *Notifier) processClick(ctx context.Context, click models.PendingClick, token string, report *Report, log logger.Logger) {
	if !click.Notifiable() {
		report.Skipped++
		report.SkippedClickIDs = append(report.SkippedClickIDs, click.ClickID)
		metrics.ClicksSkipped.WithLabelValues("missing_fields").Inc()
		log.Warn("skipping click missing notification fields", map[string]interface{}{
			"clickId":      click.ClickID,
			"restaurantId": click.RestaurantID,
		})
		return
	}

	if err := n.send(ctx, click, token); err != nil {
		report.Failed++
		report.FailedClickIDs = append(report.FailedClickIDs, click.ClickID)
		if stdErr, ok := err.(*errors.StandardError); ok {
			metrics.ClicksFailed.WithLabelValues(string(stdErr.Code)).Inc()
		} else {
			metrics.ClicksFailed.WithLabelValues("unknown").Inc()
		}
		log.WithError(err).Error("click notification failed", map[string]interface{}{
			"clickId":   click.ClickID,
			"retryable": errors.IsRetryable(err),
		})
		return
	}

	confirmed, err := n.store.ConfirmClickNotified(ctx, click.RestaurantID, click.LanguageID, click.ContentID, click.ClickID)
	if err != nil || !confirmed {
		// Accepted remotely but not confirmed here. Not counted as
		// notified; the audit trail carries it for manual follow-up.
		report.Gaps++
		report.GapClickIDs = append(report.GapClickIDs, click.ClickID)
		metrics.ConfirmationGaps.Inc()
		gapErr := err
		if gapErr == nil {
			gapErr = errors.NewConfirmationGapError(click.ClickID)
		}
		log.WithError(gapErr).Error("click notified but confirmation did not land", map[string]interface{}{
			"clickId": click.ClickID,
		})
		n.auditor.RecordGap(ctx, report.RunID, click)
		return
	}

	report.Notified++
	report.NotifiedClickIDs = append(report.NotifiedClickIDs, click.ClickID)
	metrics.ClicksNotified.Inc()
}

// send POSTs one click to the external endpoint, bounded by the per-call
// timeout. Any non-success status is a failure for this record only.
func (n *Notifier) send(ctx context.Context, click models.PendingClick, token string) error {
	payload, err := json.Marshal(models.ClickNotification{
		ExternalContentCode: click.ExternalContentCode,
		ClickCost:           click.ClickCost,
	})
	if err != nil {
		return errors.NewNotificationSendFailedError(click.ClickID, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, n.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, n.destinationURL, bytes.NewReader(payload))
	if err != nil {
		return errors.NewNotificationSendFailedError(click.ClickID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.NewNotificationSendFailedError(click.ClickID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewNotificationRejectedError(click.ClickID, resp.StatusCode)
	}

	return nil
}

func (n *Notifier) recordBatch(ctx context.Context, start time.Time, status string) {
	if n.obs == nil {
		return
	}
	n.obs.RecordBatchProcessed(ctx, status)
	n.obs.RecordBatchDuration(ctx, time.Since(start), status)
}
