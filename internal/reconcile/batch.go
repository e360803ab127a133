package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Settle runs fn for every index in [0, n) concurrently and returns one
// error slot per index. It waits for every call; one failure never cancels
// the others. A panic inside fn is recovered and recorded as that index's
// error. limit <= 0 means unbounded.
func Settle(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v", r)
				}
			}()
			errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Update is one absolute-value write.
type Update struct {
	ID    int64
	Value int64
}

type BatchResult struct {
	Succeeded int
	Failed    int
	Total     int
	Failures  map[int64]error
}

// Err returns nil on full success, *PartialBatchFailure when only some
// updates failed, and a plain error when every update failed.
func (r BatchResult) Err() error {
	switch {
	case r.Failed == 0:
		return nil
	case r.Succeeded > 0:
		return &PartialBatchFailure{Result: r}
	default:
		return fmt.Errorf("all %d updates failed", r.Total)
	}
}

// BatchSubmitter writes many records through independent calls.
type BatchSubmitter struct {
	up    Updater
	limit int
	log   *slog.Logger
}

func NewBatchSubmitter(up Updater, limit int, log *slog.Logger) *BatchSubmitter {
	if log == nil {
		log = slog.Default()
	}
	return &BatchSubmitter{up: up, limit: limit, log: log}
}

// Submit issues every update concurrently and tallies the outcomes. An
// empty batch returns ErrNoChanges without touching the network.
func (b *BatchSubmitter) Submit(ctx context.Context, updates []Update) (BatchResult, error) {
	if len(updates) == 0 {
		return BatchResult{}, ErrNoChanges
	}
	errs := Settle(ctx, len(updates), b.limit, func(ctx context.Context, i int) error {
		u := updates[i]
		return b.up.UpdateOne(ctx, u.ID, u.Value)
	})

	res := BatchResult{Total: len(updates)}
	for i, err := range errs {
		if err == nil {
			res.Succeeded++
			continue
		}
		res.Failed++
		if res.Failures == nil {
			res.Failures = make(map[int64]error)
		}
		res.Failures[updates[i].ID] = err
		b.log.Warn("record update failed", "id", updates[i].ID, "value", updates[i].Value, "err", err)
	}
	if err := ctx.Err(); err != nil && res.Succeeded == 0 {
		return res, err
	}
	return res, nil
}
