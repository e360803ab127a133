package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/baharkarakas/loyalty-admin/internal/models"
)

const (
	DefaultPageSize = 20
	DefaultDebounce = 300 * time.Millisecond
)

type Options struct {
	PageSize   int
	Debounce   time.Duration
	BatchLimit int
	Logger     *slog.Logger
	Notify     Notifier
}

// Driver owns one editing session over a ledger: the page window, the
// staked deltas, and the submission state machine.
type Driver struct {
	src      PageSource
	batch    *BatchSubmitter
	bulk     *BulkApplier
	reset    *ResetOperator
	deltas   *DeltaStore
	debounce *Debouncer
	pageSize int
	log      *slog.Logger
	notify   Notifier

	mu         sync.Mutex
	state      State
	window     Window
	records    []models.Record
	balances   map[int64]int64 // last fetched balance of every id seen this session
	pageErr    error
	lastResult *BatchResult
	lastNotice *Notice
	gen        uint64 // bumped per fetch; older responses are dropped
	session    uint64 // bumped on Open/Close; older results are discarded
	open       bool
	baseCtx    context.Context
}

func NewDriver(src PageSource, up Updater, bu BulkUpdater, opts Options) *Driver {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	d := &Driver{
		src:      src,
		batch:    NewBatchSubmitter(up, opts.BatchLimit, log),
		bulk:     NewBulkApplier(bu, log),
		reset:    NewResetOperator(bu, log),
		deltas:   NewDeltaStore(),
		debounce: NewDebouncer(opts.Debounce),
		pageSize: opts.PageSize,
		log:      log,
		notify:   opts.Notify,
		balances: make(map[int64]int64),
		window:   Window{Page: 1, PageSize: opts.PageSize},
		baseCtx:  context.Background(),
	}
	if d.notify == nil {
		d.notify = func(n Notice) { log.Info("notice", "kind", n.Kind, "text", n.Text) }
	}
	return d
}

// ----------------- Session -----------------

// Open starts a fresh session: deltas are dropped and page 1 is fetched.
// ctx also scopes debounced searches.
func (d *Driver) Open(ctx context.Context) error {
	d.mu.Lock()
	d.session++
	d.open = true
	d.baseCtx = ctx
	d.deltas.Clear()
	clear(d.balances)
	d.records = nil
	d.pageErr = nil
	d.lastResult = nil
	d.lastNotice = nil
	d.window = Window{Page: 1, PageSize: d.pageSize}
	d.transition(evReset)
	w := d.window
	d.mu.Unlock()

	d.debounce.Reset()
	return d.navigate(ctx, w)
}

// Close tears the session down. Calls still in flight may finish but their
// results are discarded.
func (d *Driver) Close() {
	d.debounce.Stop()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.session++
	d.open = false
	d.deltas.Clear()
	d.records = nil
	d.transition(evReset)
}

// ----------------- Editing -----------------

// Edit stakes raw as the delta for id, replacing any earlier delta.
func (d *Driver) Edit(id int64, raw string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrSessionClosed
	}
	if err := guard(d.state); err != nil {
		return err
	}
	if err := d.deltas.Set(id, raw); err != nil {
		return err
	}
	d.transition(evEdit)
	return nil
}

// Known reports whether id's balance has been fetched this session.
func (d *Driver) Known(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.balances[id]
	return ok
}

// ----------------- Navigation -----------------

// Search re-queries after the debounce delay; a newer Search replaces a
// pending one.
func (d *Driver) Search(q string) {
	d.debounce.Trigger(func() {
		d.mu.Lock()
		ctx := d.baseCtx
		d.mu.Unlock()
		_ = d.SearchNow(ctx, q)
	})
}

// SearchNow re-queries immediately. The page resets to 1.
func (d *Driver) SearchNow(ctx context.Context, q string) error {
	d.mu.Lock()
	w := d.window
	d.mu.Unlock()
	w.Search = strings.TrimSpace(q)
	w.Page = 1
	return d.navigate(ctx, w)
}

func (d *Driver) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		return &ValidationError{Field: "page", Msg: "must be >= 1"}
	}
	d.mu.Lock()
	w := d.window
	d.mu.Unlock()
	w.Page = page
	return d.navigate(ctx, w)
}

func (d *Driver) SetPageSize(ctx context.Context, size int) error {
	if size <= 0 {
		return &ValidationError{Field: "page_size", Msg: "must be > 0"}
	}
	d.mu.Lock()
	w := d.window
	d.mu.Unlock()
	w.PageSize = size
	w.Page = 1
	return d.navigate(ctx, w)
}

// Refresh re-fetches the current window.
func (d *Driver) Refresh(ctx context.Context) error {
	d.mu.Lock()
	w := d.window
	d.mu.Unlock()
	return d.navigate(ctx, w)
}

// Retry leaves the Error state and re-fetches.
func (d *Driver) Retry(ctx context.Context) error {
	d.mu.Lock()
	if !d.transition(evRetry) {
		d.mu.Unlock()
		return nil
	}
	w := d.window
	d.mu.Unlock()
	return d.navigate(ctx, w)
}

func (d *Driver) navigate(ctx context.Context, w Window) error {
	err := d.fetch(ctx, w)
	switch {
	case err == nil, errors.Is(err, errStale), errors.Is(err, ErrSessionClosed):
		return nil
	}
	d.emit(errorNotice(err))
	return err
}

var errStale = errors.New("stale page response")

// fetch loads w and installs it unless a newer fetch or a session change
// happened meanwhile. A failed fetch leaves an empty page and the error.
func (d *Driver) fetch(ctx context.Context, w Window) error {
	d.mu.Lock()
	d.gen++
	gen, sess := d.gen, d.session
	d.window.Page, d.window.PageSize, d.window.Search = w.Page, w.PageSize, w.Search
	d.mu.Unlock()

	page, err := d.src.FetchPage(ctx, w.Query())

	d.mu.Lock()
	defer d.mu.Unlock()
	if sess != d.session {
		return ErrSessionClosed
	}
	if gen != d.gen {
		d.log.Debug("dropping stale page", "search", w.Search, "page", w.Page)
		return errStale
	}
	if err != nil {
		var ne *NetworkError
		if !errors.As(err, &ne) {
			err = &NetworkError{Op: "fetch page", Err: err}
		}
		d.records = nil
		d.window.Total = 0
		d.pageErr = err
		return err
	}
	d.records = page.Records
	d.window.Total = page.Count
	d.pageErr = nil
	for _, r := range page.Records {
		d.balances[r.ID] = r.Balance
	}
	return nil
}

// ----------------- Save -----------------

// Save converts every staked delta to an absolute target using the last
// fetched balance, submits them as one batch, then re-fetches the current
// window. Submitted ids are cleared from the delta store whatever their
// individual outcome. A partial failure is returned as *PartialBatchFailure
// alongside the tally.
func (d *Driver) Save(ctx context.Context) (BatchResult, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return BatchResult{}, ErrSessionClosed
	}
	if err := guard(d.state); err != nil {
		d.mu.Unlock()
		return BatchResult{}, err
	}
	updates, err := d.targets()
	if err != nil {
		d.mu.Unlock()
		d.emit(errorNotice(err))
		return BatchResult{}, err
	}
	d.transition(evSubmit)
	sess := d.session
	d.mu.Unlock()

	res, err := d.batch.Submit(ctx, updates)

	d.mu.Lock()
	if sess != d.session {
		d.mu.Unlock()
		return res, ErrSessionClosed
	}
	if err != nil {
		d.transition(evFailed)
		d.mu.Unlock()
		d.emit(errorNotice(err))
		return res, err
	}
	d.transition(evSettled)
	d.lastResult = &res
	ids := make([]int64, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.ID)
	}
	d.deltas.Forget(ids...)
	w := d.window
	d.mu.Unlock()

	if err := d.reconcile(ctx, sess, w); errors.Is(err, ErrSessionClosed) {
		return res, err
	}
	d.emit(batchNotice(res))
	return res, res.Err()
}

// targets builds the batch from the delta store. Negative totals are
// rejected here so a guaranteed-to-fail write never leaves the client.
// Caller holds d.mu.
func (d *Driver) targets() ([]Update, error) {
	pending := d.deltas.Pending()
	if len(pending) == 0 {
		return nil, ErrNoChanges
	}
	ids := make([]int64, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	updates := make([]Update, 0, len(ids))
	var negative []string
	for _, id := range ids {
		bal, ok := d.balances[id]
		if !ok {
			return nil, &ValidationError{Field: "delta", Msg: fmt.Sprintf("balance of record %d is unknown", id)}
		}
		target := bal + pending[id]
		if target < 0 {
			negative = append(negative, fmt.Sprintf("%d", id))
			continue
		}
		updates = append(updates, Update{ID: id, Value: target})
	}
	if len(negative) > 0 {
		return nil, &ValidationError{Field: "delta", Msg: "new total would be negative for records " + strings.Join(negative, ", ")}
	}
	return updates, nil
}

// reconcile re-fetches after a settled submission and leaves Reconciling.
func (d *Driver) reconcile(ctx context.Context, sess uint64, w Window) error {
	err := d.fetch(ctx, w)
	if errors.Is(err, errStale) {
		err = nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if sess != d.session {
		return ErrSessionClosed
	}
	if err != nil {
		d.log.Warn("reconcile fetch failed", "err", err)
		d.transition(evFailed)
		return err
	}
	d.transition(evReconciled)
	return nil
}

// ----------------- Bulk and reset -----------------

type bulkOp struct {
	reset bool
	delta int64
}

// BulkIntent is the first step of a bulk delta or reset. The operation
// cannot run until it is acknowledged and then confirmed with the secret.
type BulkIntent struct {
	d  *Driver
	op bulkOp
}

// BulkConfirmation is an acknowledged intent waiting for the secret. It can
// be submitted once.
type BulkConfirmation struct {
	d    *Driver
	op   bulkOp
	used bool
}

func (d *Driver) RequestBulkDelta(delta int64) (*BulkIntent, error) {
	if delta == 0 {
		err := &ValidationError{Field: "delta", Msg: "bulk delta must not be zero"}
		d.emit(errorNotice(err))
		return nil, err
	}
	return &BulkIntent{d: d, op: bulkOp{delta: delta}}, nil
}

func (d *Driver) RequestReset() *BulkIntent {
	return &BulkIntent{d: d, op: bulkOp{reset: true}}
}

// Acknowledge records that the user accepted the operation is irreversible
// and touches every eligible record.
func (i *BulkIntent) Acknowledge(irreversible bool) (*BulkConfirmation, error) {
	if !irreversible {
		return nil, &ValidationError{Field: "acknowledge", Msg: "the irreversible operation must be acknowledged"}
	}
	return &BulkConfirmation{d: i.d, op: i.op}, nil
}

// Submit runs the operation with the re-entered secret. On a rejected
// secret the page and delta store are left exactly as they were.
func (c *BulkConfirmation) Submit(ctx context.Context, secret string) (models.BulkUpdateResult, error) {
	d := c.d
	d.mu.Lock()
	if c.used {
		d.mu.Unlock()
		return models.BulkUpdateResult{}, &ValidationError{Field: "confirmation", Msg: "already submitted"}
	}
	if !d.open {
		d.mu.Unlock()
		return models.BulkUpdateResult{}, ErrSessionClosed
	}
	if err := guard(d.state); err != nil {
		d.mu.Unlock()
		return models.BulkUpdateResult{}, err
	}
	c.used = true
	d.transition(evSubmit)
	sess := d.session
	d.mu.Unlock()

	var (
		res models.BulkUpdateResult
		err error
	)
	if c.op.reset {
		res, err = d.reset.ResetAll(ctx, secret)
	} else {
		res, err = d.bulk.ApplyDelta(ctx, c.op.delta, secret)
	}

	d.mu.Lock()
	if sess != d.session {
		d.mu.Unlock()
		return res, ErrSessionClosed
	}
	if err != nil {
		if IsValidation(err) || IsAuthorization(err) {
			d.transition(evAborted)
			c.used = IsAuthorization(err)
		} else {
			d.transition(evFailed)
		}
		d.mu.Unlock()
		d.emit(errorNotice(err))
		return res, err
	}
	d.transition(evSettled)
	// Every cached balance predates the bulk change. Staged deltas for ids
	// off the current page cannot be saved until their page is fetched
	// again.
	clear(d.balances)
	w := d.window
	d.mu.Unlock()

	if err := d.reconcile(ctx, sess, w); errors.Is(err, ErrSessionClosed) {
		return res, err
	}
	d.emit(bulkNotice(res))
	return res, nil
}

// ----------------- View -----------------

type Row struct {
	Record   models.Record
	Delta    int64
	NewTotal int64
}

// Snapshot is what the UI renders.
type Snapshot struct {
	State      State
	Window     Window
	Rows       []Row
	Pending    map[int64]int64
	LastResult *BatchResult
	LastNotice *Notice
	PageErr    error
	CanSave    bool
}

func (d *Driver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Snapshot{
		State:      d.state,
		Window:     d.window,
		Pending:    d.deltas.Pending(),
		LastResult: d.lastResult,
		LastNotice: d.lastNotice,
		PageErr:    d.pageErr,
	}
	s.CanSave = d.open && d.state == StateEditing
	s.Rows = make([]Row, 0, len(d.records))
	for _, r := range d.records {
		delta, _ := d.deltas.Get(r.ID)
		s.Rows = append(s.Rows, Row{Record: r, Delta: delta, NewTotal: d.deltas.NewTotal(r.ID, r.Balance)})
	}
	return s
}

// PendingIDs lists ids with a staked delta, ascending.
func (d *Driver) PendingIDs() []int64 {
	p := d.deltas.Pending()
	ids := make([]int64, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// transition applies e to the state machine. Caller holds d.mu.
func (d *Driver) transition(e event) bool {
	to, ok := next(d.state, e, d.deltas.Len())
	if !ok {
		return false
	}
	if to != d.state {
		d.log.Debug("reconcile state", "from", d.state, "to", to)
	}
	d.state = to
	return true
}

func (d *Driver) emit(n Notice) {
	d.mu.Lock()
	d.lastNotice = &n
	d.mu.Unlock()
	d.notify(n)
}
