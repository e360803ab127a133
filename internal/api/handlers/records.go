package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/loyalty-admin/internal/api/httpx"
	"github.com/baharkarakas/loyalty-admin/internal/api/validate"
	"github.com/baharkarakas/loyalty-admin/internal/middleware"
	"github.com/baharkarakas/loyalty-admin/internal/models"
	repo "github.com/baharkarakas/loyalty-admin/internal/repository"
	"github.com/baharkarakas/loyalty-admin/internal/services"
)

const defaultPageSize = 20

// RecordService is the ledger surface the handlers need.
type RecordService interface {
	Page(ctx context.Context, ledger models.Ledger, page, size int, search string) (models.RecordPage, error)
	Get(ctx context.Context, ledger models.Ledger, id int64) (models.Record, error)
	SetValue(ctx context.Context, ledger models.Ledger, id, value int64, actorID string) (models.Record, error)
	Bulk(ctx context.Context, ledger models.Ledger, req models.BulkUpdateRequest, actorID string) (models.BulkUpdateResult, error)
}

type RecordHandler struct {
	Svc RecordService
}

func NewRecordHandler(svc RecordService) *RecordHandler { return &RecordHandler{Svc: svc} }

// Ledger resolves the {ledger} path segment and rejects unknown ones.
func Ledger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l, err := models.ParseLedger(chi.URLParam(r, "ledger"))
		if err != nil {
			httpx.WriteError(w, http.StatusNotFound, "unknown_ledger", "unknown ledger "+strconv.Quote(chi.URLParam(r, "ledger")), nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ledgerKey{}, l)))
	})
}

type ledgerKey struct{}

func ledgerFrom(r *http.Request) models.Ledger {
	l, _ := r.Context().Value(ledgerKey{}).(models.Ledger)
	return l
}

// List: GET /{ledger}?page=&page_size=&search=
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var errs validate.Errs
	page, e := validate.IntParam("page", q.Get("page"), 1)
	if e != nil {
		errs = append(errs, *e)
	}
	size, e := validate.IntParam("page_size", q.Get("page_size"), defaultPageSize)
	if e != nil {
		errs = append(errs, *e)
	}
	if len(errs) > 0 {
		writeServiceError(w, errs)
		return
	}

	out, err := h.Svc.Page(r.Context(), ledgerFrom(r), page, size, q.Get("search"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if out.Results == nil {
		out.Results = []models.Record{}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Get: GET /{ledger}/{id}
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := h.Svc.Get(r.Context(), ledgerFrom(r), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid record id", nil)
		return 0, false
	}
	return id, true
}

// Set: PUT /{ledger}/{id} {"value": N}
func (h *RecordHandler) Set(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var req models.SetValueRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	uid, _ := middleware.UserID(r.Context())
	rec, err := h.Svc.SetValue(r.Context(), ledgerFrom(r), id, req.Value, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

// Bulk: POST /{ledger}/bulk-update {"delta": N, "secret": "..."} or
// {"reset_to_zero": true, "secret": "..."}
func (h *RecordHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req models.BulkUpdateRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if req.ResetToZero && req.Delta != 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", "delta and reset_to_zero are exclusive", nil)
		return
	}
	uid, _ := middleware.UserID(r.Context())
	res, err := h.Svc.Bulk(r.Context(), ledgerFrom(r), req, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verrs validate.Errs
	switch {
	case errors.As(err, &verrs):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", verrs.Error(), verrs)
	case errors.Is(err, repo.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, repo.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "conflict", "already exists", nil)
	case errors.Is(err, services.ErrInvalidSecret):
		httpx.WriteError(w, http.StatusForbidden, "invalid_secret", "secret was not accepted", nil)
	case errors.Is(err, context.Canceled):
		httpx.WriteError(w, http.StatusServiceUnavailable, "canceled", "request canceled", nil)
	default:
		slog.Error("records handler", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
