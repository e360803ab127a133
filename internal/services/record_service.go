package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/baharkarakas/loyalty-admin/internal/api/validate"
	"github.com/baharkarakas/loyalty-admin/internal/auth"
	"github.com/baharkarakas/loyalty-admin/internal/metrics"
	"github.com/baharkarakas/loyalty-admin/internal/models"
	repo "github.com/baharkarakas/loyalty-admin/internal/repository"
	"github.com/baharkarakas/loyalty-admin/internal/worker"
)

const MaxPageSize = 200

type RecordService struct {
	records repo.Records
	users   repo.Users
	log     repo.AuditLogs
	wp      *worker.Pool
}

func NewRecordService(r repo.Records, u repo.Users, l repo.AuditLogs, wp *worker.Pool) *RecordService {
	return &RecordService{records: r, users: u, log: l, wp: wp}
}

// ----------------- Helpers -----------------

// audit is written on the worker pool so a slow audit table never delays
// the balance write it describes.
func (s *RecordService) audit(ledger models.Ledger, entityID, actorID, action string, details map[string]any) {
	entry := models.AuditLog{
		EntityType: "ledger_record:" + string(ledger),
		Action:     action,
		Details:    details,
	}
	if entityID != "" {
		entry.EntityID = &entityID
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	s.wp.Submit(func() {
		if err := s.log.Create(context.Background(), entry); err != nil {
			slog.Error("audit write", "action", action, "err", err)
		}
	})
}

func (s *RecordService) verifySecret(ctx context.Context, actorID, secret string) error {
	u, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidSecret
		}
		return err
	}
	if err := auth.VerifyPassword(secret, u.PasswordHash); err != nil {
		return ErrInvalidSecret
	}
	return nil
}

// ----------------- Queries -----------------

func (s *RecordService) Page(ctx context.Context, ledger models.Ledger, page, size int, search string) (models.RecordPage, error) {
	var errs validate.Errs
	if e := validate.MinInt("page", int64(page), 1); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.RangeInt("page_size", int64(size), 1, MaxPageSize); e != nil {
		errs = append(errs, *e)
	}
	if len(errs) > 0 {
		return models.RecordPage{}, errs
	}

	recs, total, err := s.records.Page(ctx, ledger, strings.TrimSpace(search), size, (page-1)*size)
	if err != nil {
		return models.RecordPage{}, fmt.Errorf("page %s: %w", ledger, err)
	}
	return models.RecordPage{Count: total, Results: recs}, nil
}

func (s *RecordService) Get(ctx context.Context, ledger models.Ledger, id int64) (models.Record, error) {
	return s.records.Get(ctx, ledger, id)
}

// ----------------- Writes -----------------

// SetValue sets one balance to an absolute value. Concurrent writers race;
// the last one wins.
func (s *RecordService) SetValue(ctx context.Context, ledger models.Ledger, id, value int64, actorID string) (models.Record, error) {
	if e := validate.MinInt("value", value, 0); e != nil {
		metrics.RecordUpdatesTotal.WithLabelValues(string(ledger), "invalid").Inc()
		return models.Record{}, validate.Errs{*e}
	}
	rec, err := s.records.SetBalance(ctx, ledger, id, value)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		metrics.RecordUpdatesTotal.WithLabelValues(string(ledger), "not_found").Inc()
		return models.Record{}, err
	case err != nil:
		metrics.RecordUpdatesTotal.WithLabelValues(string(ledger), "error").Inc()
		return models.Record{}, err
	}
	metrics.RecordUpdatesTotal.WithLabelValues(string(ledger), "ok").Inc()
	s.audit(ledger, strconv.FormatInt(id, 10), actorID, "set_balance", map[string]any{"value": value})
	return rec, nil
}

// Bulk applies req to every eligible record of the ledger after checking
// the caller's re-entered secret.
func (s *RecordService) Bulk(ctx context.Context, ledger models.Ledger, req models.BulkUpdateRequest, actorID string) (models.BulkUpdateResult, error) {
	op := req.Op()
	count := func(outcome string) {
		metrics.BulkOperationsTotal.WithLabelValues(string(ledger), string(op), outcome).Inc()
	}

	var errs validate.Errs
	if e := validate.Required("secret", req.Secret); e != nil {
		errs = append(errs, *e)
	}
	if op == models.BulkOpDelta && req.Delta == 0 {
		errs = append(errs, validate.ErrField{Field: "delta", Msg: "must not be zero"})
	}
	if len(errs) > 0 {
		count("invalid")
		return models.BulkUpdateResult{}, errs
	}
	if err := s.verifySecret(ctx, actorID, req.Secret); err != nil {
		if errors.Is(err, ErrInvalidSecret) {
			count("unauthorized")
			s.audit(ledger, "", actorID, "bulk_rejected", map[string]any{"op": op})
		} else {
			count("error")
		}
		return models.BulkUpdateResult{}, err
	}

	var (
		n   int64
		err error
	)
	if op == models.BulkOpReset {
		n, err = s.records.ResetAll(ctx, ledger)
	} else {
		n, err = s.records.ApplyDelta(ctx, ledger, req.Delta)
	}
	if err != nil {
		count("error")
		return models.BulkUpdateResult{}, fmt.Errorf("bulk %s %s: %w", op, ledger, err)
	}
	count("ok")
	metrics.BulkRecordsTouched.WithLabelValues(string(ledger), string(op)).Add(float64(n))
	s.audit(ledger, "", actorID, "bulk_"+string(op), map[string]any{"delta": req.Delta, "updated_count": n})

	msg := fmt.Sprintf("%d %s records reset to zero", n, ledger)
	if op == models.BulkOpDelta {
		msg = fmt.Sprintf("applied %+d to %d %s records", req.Delta, n, ledger)
	}
	return models.BulkUpdateResult{UpdatedCount: n, Message: msg}, nil
}
