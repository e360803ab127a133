package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/loyalty-admin/internal/models"
)

func newTestDriver(t *testing.T, f *fakeLedger, pageSize int) (*Driver, *noticeLog) {
	t.Helper()
	log := &noticeLog{}
	d := NewDriver(f, f, f, Options{PageSize: pageSize, Debounce: 10 * time.Millisecond, Notify: log.notify})
	require.NoError(t, d.Open(context.Background()))
	t.Cleanup(d.Close)
	return d, log
}

func TestOpenFetchesFirstPage(t *testing.T) {
	f := newFakeLedger(25)
	d, _ := newTestDriver(t, f, 10)

	s := d.Snapshot()
	assert.Equal(t, StateIdle, s.State)
	assert.Len(t, s.Rows, 10)
	assert.Equal(t, 25, s.Window.Total)
	assert.Equal(t, 3, s.Window.Pages())
	assert.False(t, s.CanSave)
}

func TestSaveSubmitsAbsoluteTarget(t *testing.T) {
	f := newFakeLedger(0)
	f.add(models.Record{ID: 5, Name: "five", Balance: 250, Eligible: true})
	d, log := newTestDriver(t, f, 10)

	require.NoError(t, d.Edit(5, "+100"))
	s := d.Snapshot()
	assert.Equal(t, StateEditing, s.State)
	assert.True(t, s.CanSave)
	assert.Equal(t, int64(350), s.Rows[0].NewTotal)

	res, err := d.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Succeeded: 1, Total: 1}, res)
	assert.Equal(t, []Update{{ID: 5, Value: 350}}, f.updateCalls())

	s = d.Snapshot()
	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, s.Pending)
	assert.Equal(t, int64(350), s.Rows[0].Record.Balance, "page re-fetched after save")
	assert.Equal(t, []Notice{{Kind: NoticeSuccess, Text: "1 records updated"}}, log.all())
}

func TestSecondEditReplacesFirst(t *testing.T) {
	f := newFakeLedger(3)
	d, _ := newTestDriver(t, f, 10)

	require.NoError(t, d.Edit(1, "10"))
	require.NoError(t, d.Edit(1, "-5"))
	_, err := d.Save(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Update{{ID: 1, Value: 5}}, f.updateCalls())
}

func TestPartialFailureStillReconciles(t *testing.T) {
	f := newFakeLedger(3)
	f.failIDs[2] = errors.New("server said no")
	d, log := newTestDriver(t, f, 10)

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, d.Edit(id, "1"))
	}
	fetchesBefore := f.fetchCount()

	res, err := d.Save(context.Background())
	var pbf *PartialBatchFailure
	require.ErrorAs(t, err, &pbf)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, fetchesBefore+1, f.fetchCount(), "re-fetch after settle")

	s := d.Snapshot()
	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, s.Pending, "failed ids are cleared too")
	assert.Equal(t, &res, s.LastResult)
	assert.Equal(t, int64(20), s.Rows[1].Record.Balance, "server truth for the failed row")
	assert.Equal(t, []Notice{{Kind: NoticePartial, Text: "2 of 3 updated, 1 failed"}}, log.all())
}

func TestTotalFailureNotice(t *testing.T) {
	f := newFakeLedger(2)
	f.failIDs[1] = errors.New("a")
	f.failIDs[2] = errors.New("b")
	d, log := newTestDriver(t, f, 10)
	require.NoError(t, d.Edit(1, "1"))
	require.NoError(t, d.Edit(2, "1"))

	_, err := d.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, []Notice{{Kind: NoticeFailure, Text: "update failed for all 2 records"}}, log.all())
	assert.Equal(t, StateIdle, d.Snapshot().State)
}

func TestSaveWithoutChanges(t *testing.T) {
	f := newFakeLedger(2)
	d, log := newTestDriver(t, f, 10)

	_, err := d.Save(context.Background())
	require.ErrorIs(t, err, ErrNoChanges)
	assert.Empty(t, f.updateCalls())
	require.Len(t, log.all(), 1)
	assert.Equal(t, NoticeValidation, log.all()[0].Kind)
}

func TestNegativeTargetRejectedBeforeNetwork(t *testing.T) {
	f := newFakeLedger(3)
	d, _ := newTestDriver(t, f, 10)

	require.NoError(t, d.Edit(1, "-11"))
	require.NoError(t, d.Edit(2, "+5"))
	_, err := d.Save(context.Background())
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.ErrorContains(t, err, "records 1")
	assert.Empty(t, f.updateCalls())
	assert.Equal(t, StateEditing, d.Snapshot().State)
	assert.Len(t, d.Snapshot().Pending, 2)
}

func TestDeltasSurvivePageAndSearchChanges(t *testing.T) {
	f := newFakeLedger(25)
	d, _ := newTestDriver(t, f, 10)
	ctx := context.Background()

	require.NoError(t, d.Edit(2, "5"))
	require.NoError(t, d.SetPage(ctx, 3))
	require.NoError(t, d.Edit(22, "-20"))
	require.NoError(t, d.SearchNow(ctx, "customer-1"))
	assert.Equal(t, 1, d.Snapshot().Window.Page)
	require.NoError(t, d.Edit(11, "1"))

	assert.Equal(t, []int64{2, 11, 22}, d.PendingIDs())
	_, err := d.Save(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Update{{ID: 2, Value: 25}, {ID: 11, Value: 111}, {ID: 22, Value: 200}}, f.updateCalls())
	assert.Equal(t, "customer-1", d.Snapshot().Window.Search)
}

func TestStaleSearchResponseDropped(t *testing.T) {
	f := newFakeLedger(0)
	f.add(models.Record{ID: 1, Name: "jane", Balance: 1})
	f.add(models.Record{ID: 2, Name: "john", Balance: 2})
	d, _ := newTestDriver(t, f, 10)

	janeStarted := make(chan struct{})
	releaseJane := make(chan struct{})
	f.onFetch = func(q PageQuery) {
		if q.Search == "jane" {
			close(janeStarted)
			<-releaseJane
		}
	}

	done := make(chan error, 1)
	go func() { done <- d.SearchNow(context.Background(), "jane") }()
	<-janeStarted

	require.NoError(t, d.SearchNow(context.Background(), "john"))
	close(releaseJane)
	require.NoError(t, <-done)

	s := d.Snapshot()
	require.Len(t, s.Rows, 1)
	assert.Equal(t, "john", s.Rows[0].Record.Name)
	assert.Equal(t, "john", s.Window.Search)
}

func TestDebouncedSearchFetchesOnce(t *testing.T) {
	f := newFakeLedger(0)
	f.add(models.Record{ID: 1, Name: "jane"})
	f.add(models.Record{ID: 2, Name: "john"})
	d, _ := newTestDriver(t, f, 10)
	before := f.fetchCount()

	d.Search("j")
	d.Search("jo")
	d.Search("john")

	require.Eventually(t, func() bool { return d.Snapshot().Window.Search == "john" && len(d.Snapshot().Rows) == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before+1, f.fetchCount())
}

func TestWrongSecretLeavesEverythingUntouched(t *testing.T) {
	f := newFakeLedger(3)
	d, log := newTestDriver(t, f, 10)
	require.NoError(t, d.Edit(2, "7"))
	before := d.Snapshot()

	conf, err := d.RequestReset().Acknowledge(true)
	require.NoError(t, err)
	_, err = conf.Submit(context.Background(), "wrong")
	require.Error(t, err)
	assert.True(t, IsAuthorization(err))

	after := d.Snapshot()
	assert.Equal(t, before.Rows, after.Rows)
	assert.Equal(t, before.Pending, after.Pending)
	assert.Equal(t, StateEditing, after.State)
	assert.Equal(t, int64(30), f.balance(3))
	assert.Equal(t, []Notice{{Kind: NoticeAuthorization, Text: "invalid secret"}}, log.all())

	_, err = conf.Submit(context.Background(), "s3cret")
	assert.Error(t, err, "a rejected confirmation cannot be reused")
}

func TestResetThroughGate(t *testing.T) {
	f := newFakeLedger(3)
	d, log := newTestDriver(t, f, 10)

	conf, err := d.RequestReset().Acknowledge(true)
	require.NoError(t, err)
	res, err := conf.Submit(context.Background(), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.UpdatedCount)

	for _, row := range d.Snapshot().Rows {
		assert.Zero(t, row.Record.Balance)
	}
	assert.Equal(t, StateIdle, d.Snapshot().State)
	assert.Len(t, log.all(), 1)
}

func TestBulkDeltaGate(t *testing.T) {
	f := newFakeLedger(2)
	d, _ := newTestDriver(t, f, 10)

	_, err := d.RequestBulkDelta(0)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	intent, err := d.RequestBulkDelta(50)
	require.NoError(t, err)
	_, err = intent.Acknowledge(false)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Zero(t, f.bulkCount())

	conf, err := intent.Acknowledge(true)
	require.NoError(t, err)
	_, err = conf.Submit(context.Background(), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(60), f.balance(1))
	assert.Equal(t, int64(60), d.Snapshot().Rows[0].Record.Balance)
}

func TestBulkInvalidatesOffPageBalances(t *testing.T) {
	f := newFakeLedger(25)
	d, log := newTestDriver(t, f, 10)
	ctx := context.Background()

	require.NoError(t, d.SetPage(ctx, 3))
	require.NoError(t, d.Edit(22, "+5"))
	require.NoError(t, d.SetPage(ctx, 1))

	intent, err := d.RequestBulkDelta(100)
	require.NoError(t, err)
	conf, err := intent.Acknowledge(true)
	require.NoError(t, err)
	_, err = conf.Submit(ctx, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(320), f.balance(22))
	assert.Equal(t, []int64{22}, d.PendingIDs(), "staged delta kept")
	assert.False(t, d.Known(22))

	_, err = d.Save(ctx)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Empty(t, f.updateCalls(), "no write against the pre-bulk balance")
	assert.Equal(t, NoticeValidation, log.all()[len(log.all())-1].Kind)

	require.NoError(t, d.SetPage(ctx, 3))
	_, err = d.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Update{{ID: 22, Value: 325}}, f.updateCalls())
	assert.Equal(t, int64(325), f.balance(22))
}

func TestSaveDisabledWhileSubmitting(t *testing.T) {
	f := newFakeLedger(2)
	d, _ := newTestDriver(t, f, 10)
	started := make(chan struct{})
	release := make(chan struct{})
	f.onUpdate = func(id int64) {
		close(started)
		<-release
	}
	require.NoError(t, d.Edit(1, "1"))

	done := make(chan error, 1)
	go func() {
		_, err := d.Save(context.Background())
		done <- err
	}()
	<-started

	s := d.Snapshot()
	assert.Equal(t, StateSubmitting, s.State)
	assert.False(t, s.CanSave)
	_, err := d.Save(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, d.Edit(2, "3"), ErrBusy)
	conf, _ := d.RequestReset().Acknowledge(true)
	_, err = conf.Submit(context.Background(), "s3cret")
	assert.ErrorIs(t, err, ErrBusy)
	require.NoError(t, d.SetPage(context.Background(), 1), "navigation stays available")

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, f.updateCalls(), 1)
}

func TestCloseDiscardsInFlightResults(t *testing.T) {
	f := newFakeLedger(2)
	log := &noticeLog{}
	d := NewDriver(f, f, f, Options{PageSize: 10, Notify: log.notify})
	require.NoError(t, d.Open(context.Background()))

	started := make(chan struct{})
	release := make(chan struct{})
	f.onUpdate = func(id int64) {
		close(started)
		<-release
	}
	require.NoError(t, d.Edit(1, "5"))

	done := make(chan error, 1)
	go func() {
		_, err := d.Save(context.Background())
		done <- err
	}()
	<-started
	d.Close()
	fetches := f.fetchCount()
	close(release)

	assert.ErrorIs(t, <-done, ErrSessionClosed)
	assert.Equal(t, fetches, f.fetchCount(), "no reconciling fetch after teardown")
	s := d.Snapshot()
	assert.Empty(t, s.Rows)
	assert.Empty(t, s.Pending)
	assert.Nil(t, s.LastResult)
	assert.Empty(t, log.all())
	assert.ErrorIs(t, d.Edit(1, "1"), ErrSessionClosed)
}

func TestFetchFailureShowsEmptyPage(t *testing.T) {
	f := newFakeLedger(3)
	d, log := newTestDriver(t, f, 10)
	require.NoError(t, d.Edit(1, "4"))

	f.mu.Lock()
	f.fetchErr = errors.New("unavailable")
	f.mu.Unlock()
	err := d.SetPage(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))

	s := d.Snapshot()
	assert.Empty(t, s.Rows)
	assert.Error(t, s.PageErr)
	assert.Equal(t, map[int64]int64{1: 4}, s.Pending, "delta store untouched")
	require.Len(t, log.all(), 1)
	assert.Equal(t, NoticeNetwork, log.all()[0].Kind)

	f.mu.Lock()
	f.fetchErr = nil
	f.mu.Unlock()
	require.NoError(t, d.Refresh(context.Background()))
	assert.Len(t, d.Snapshot().Rows, 3)
	assert.NoError(t, d.Snapshot().PageErr)
}

func TestReconcileFetchFailureEntersErrorThenRetry(t *testing.T) {
	f := newFakeLedger(2)
	d, _ := newTestDriver(t, f, 10)
	f.onUpdate = func(id int64) {
		f.mu.Lock()
		f.fetchErr = errors.New("down")
		f.mu.Unlock()
	}
	require.NoError(t, d.Edit(1, "1"))

	_, err := d.Save(context.Background())
	require.NoError(t, err, "the batch itself succeeded")
	s := d.Snapshot()
	assert.Equal(t, StateError, s.State)
	assert.Error(t, s.PageErr)
	assert.ErrorIs(t, d.Edit(2, "1"), ErrNeedsRetry)

	f.mu.Lock()
	f.fetchErr = nil
	f.mu.Unlock()
	require.NoError(t, d.Retry(context.Background()))
	s = d.Snapshot()
	assert.Equal(t, StateIdle, s.State)
	assert.Equal(t, int64(11), s.Rows[0].Record.Balance)
}

func TestReopenResetsSession(t *testing.T) {
	f := newFakeLedger(3)
	d, _ := newTestDriver(t, f, 10)
	require.NoError(t, d.Edit(1, "1"))
	require.NoError(t, d.SearchNow(context.Background(), "customer-02"))

	require.NoError(t, d.Open(context.Background()))
	s := d.Snapshot()
	assert.Empty(t, s.Pending)
	assert.Equal(t, "", s.Window.Search)
	assert.Len(t, s.Rows, 3)
}

func TestEditRejectsGarbage(t *testing.T) {
	f := newFakeLedger(1)
	d, _ := newTestDriver(t, f, 10)
	require.NoError(t, d.Edit(1, "12"))

	err := d.Edit(1, "twelve")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, map[int64]int64{1: 12}, d.Snapshot().Pending)
}

func TestPageValidation(t *testing.T) {
	f := newFakeLedger(1)
	d, _ := newTestDriver(t, f, 10)
	assert.True(t, IsValidation(d.SetPage(context.Background(), 0)))
	assert.True(t, IsValidation(d.SetPageSize(context.Background(), 0)))

	require.NoError(t, d.SetPageSize(context.Background(), 1))
	assert.Equal(t, Window{Page: 1, PageSize: 1, Total: 1}, d.Snapshot().Window)
}
