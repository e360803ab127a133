package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/baharkarakas/loyalty-admin/internal/models"
)

// BulkApplier asks the server to add one delta to every eligible record.
type BulkApplier struct {
	up  BulkUpdater
	log *slog.Logger
}

func NewBulkApplier(up BulkUpdater, log *slog.Logger) *BulkApplier {
	if log == nil {
		log = slog.Default()
	}
	return &BulkApplier{up: up, log: log}
}

func (a *BulkApplier) ApplyDelta(ctx context.Context, delta int64, secret string) (models.BulkUpdateResult, error) {
	if delta == 0 {
		return models.BulkUpdateResult{}, &ValidationError{Field: "delta", Msg: "bulk delta must not be zero"}
	}
	if err := requireSecret(secret); err != nil {
		return models.BulkUpdateResult{}, err
	}
	res, err := a.up.BulkUpdate(ctx, models.BulkUpdateRequest{Delta: delta, Secret: secret})
	if err != nil {
		a.log.Warn("bulk delta rejected", "delta", delta, "err", err)
		return models.BulkUpdateResult{}, err
	}
	a.log.Info("bulk delta applied", "delta", delta, "updated", res.UpdatedCount)
	return res, nil
}

// ResetOperator forces every eligible balance to zero in one server call,
// including records the client never paged into view.
type ResetOperator struct {
	up  BulkUpdater
	log *slog.Logger
}

func NewResetOperator(up BulkUpdater, log *slog.Logger) *ResetOperator {
	if log == nil {
		log = slog.Default()
	}
	return &ResetOperator{up: up, log: log}
}

func (o *ResetOperator) ResetAll(ctx context.Context, secret string) (models.BulkUpdateResult, error) {
	if err := requireSecret(secret); err != nil {
		return models.BulkUpdateResult{}, err
	}
	res, err := o.up.BulkUpdate(ctx, models.BulkUpdateRequest{ResetToZero: true, Secret: secret})
	if err != nil {
		o.log.Warn("reset rejected", "err", err)
		return models.BulkUpdateResult{}, err
	}
	o.log.Info("reset applied", "updated", res.UpdatedCount)
	return res, nil
}

func requireSecret(secret string) error {
	if strings.TrimSpace(secret) == "" {
		return &ValidationError{Field: "secret", Msg: "required"}
	}
	return nil
}
