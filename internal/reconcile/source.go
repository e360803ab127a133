package reconcile

import (
	"context"

	"github.com/baharkarakas/loyalty-admin/internal/models"
)

type PageQuery struct {
	Page     int
	PageSize int
	Search   string
}

type Page struct {
	Records []models.Record
	Count   int
}

// PageSource returns one page of records. Implementations must be free of
// side effects; failures are reported as *NetworkError.
type PageSource interface {
	FetchPage(ctx context.Context, q PageQuery) (Page, error)
}

// Updater sets one record's balance to an absolute value.
type Updater interface {
	UpdateOne(ctx context.Context, id, value int64) error
}

// BulkUpdater runs a single server-side operation over every eligible
// record.
type BulkUpdater interface {
	BulkUpdate(ctx context.Context, req models.BulkUpdateRequest) (models.BulkUpdateResult, error)
}

// Window is the current page window. Total is refreshed on every fetch.
type Window struct {
	Page     int
	PageSize int
	Search   string
	Total    int
}

func (w Window) Query() PageQuery {
	return PageQuery{Page: w.Page, PageSize: w.PageSize, Search: w.Search}
}

func (w Window) Pages() int {
	if w.PageSize <= 0 || w.Total == 0 {
		return 1
	}
	return (w.Total + w.PageSize - 1) / w.PageSize
}
