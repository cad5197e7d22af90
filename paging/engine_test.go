package paging

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remote serves a fixed listing in batches, recording requested offsets.
type remote struct {
	records []rec
	batch   int
	offsets []int
	err     error
}

func newRemote(n int, total string) *remote {
	r := &remote{batch: DefaultFetchBatch}
	for i := 0; i < n; i++ {
		r.records = append(r.records, rec{ID: fmt.Sprintf("r%03d", i), Count: total})
	}
	return r
}

func (r *remote) Fetch(_ context.Context, offset int) (Page[rec], error) {
	r.offsets = append(r.offsets, offset)
	if r.err != nil {
		return Page[rec]{}, r.err
	}
	if offset >= len(r.records) {
		return Page[rec]{}, nil
	}
	end := min(offset+r.batch, len(r.records))
	return Page[rec]{Items: append([]rec(nil), r.records[offset:end]...)}, nil
}

func newTestEngine(r *remote, mode Mode, page int) *Engine[rec] {
	e := NewEngine[rec](r, recID, recCount)
	e.Reset(Context{Mode: mode, Page: page})
	return e
}

func TestReconcileScrollFullBatch(t *testing.T) {
	r := newRemote(250, "250")
	e := newTestEngine(r, ModeScroll, 1)
	ctx := context.Background()

	_, err := e.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 100, e.Collection().Len())

	out, err := e.Reconcile(ctx)
	require.NoError(t, err)

	assert.True(t, out.HasMore)
	assert.False(t, out.Padded)
	assert.False(t, e.Cursor().Exhausted)
	assert.Equal(t, 100, e.Cursor().Offset)
	assert.Equal(t, []int{0, 100}, r.offsets)
	assert.Equal(t, 200, e.Collection().Len())
}

func TestReconcileScrollShortBatchExhausts(t *testing.T) {
	r := newRemote(142, "142")
	e := newTestEngine(r, ModeScroll, 1)
	ctx := context.Background()

	out, err := e.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Fetched)
	assert.False(t, out.HasMore)
	assert.True(t, out.Exhausted)
	assert.Equal(t, 42, e.Collection().Len())

	before := e.Cursor()
	out, err = e.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, before, e.Cursor())
	assert.Equal(t, []int{100}, r.offsets)
}

func TestReconcileExhaustionIsMonotonic(t *testing.T) {
	r := newRemote(10, "10")
	e := newTestEngine(r, ModePage, 2)
	ctx := context.Background()

	_, err := e.Reconcile(ctx)
	require.NoError(t, err)
	require.True(t, e.Cursor().Exhausted)

	snapshot := ids(e.Collection().Items())
	cur := e.Cursor()
	for i := 0; i < 3; i++ {
		_, err := e.Reconcile(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, cur, e.Cursor())
	assert.Equal(t, snapshot, ids(e.Collection().Items()))
}

func TestReconcilePageModePaddedWrite(t *testing.T) {
	r := newRemote(500, "500")
	e := newTestEngine(r, ModePage, 3)

	req, ok := e.Plan()
	require.True(t, ok)
	assert.Equal(t, 30, req.Offset)

	out, err := e.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Padded)

	c := e.Collection()
	assert.Equal(t, 130, c.Len())
	for i := 0; i < c.Len(); i++ {
		assert.Equal(t, i >= 30, c.Valid(i), "slot %d", i)
	}
	first, _ := c.At(30)
	assert.Equal(t, "r030", first.ID)

	w := e.Window()
	assert.False(t, w.Empty)
	assert.Len(t, w.Items, 15)
	assert.Equal(t, "r030", w.Items[0].ID)
}

func TestReconcilePageModeOffsetZeroSkipsWhenLoaded(t *testing.T) {
	r := newRemote(50, "50")
	e := newTestEngine(r, ModePage, 1)
	ctx := context.Background()

	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	_, ok := e.Plan()
	assert.False(t, ok)

	out, err := e.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, []int{0}, r.offsets)
}

func TestReconcilePageModeMergeKeepsAlignment(t *testing.T) {
	r := newRemote(300, "300")
	e := newTestEngine(r, ModePage, 1)
	ctx := context.Background()

	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	e.GoTo(3)
	out, err := e.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, out.Padded)

	c := e.Collection()
	for i := 0; i < c.Len(); i++ {
		item, ok := c.At(i)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("r%03d", i), item.ID)
	}
	assert.Equal(t, 130, c.Len())
}

func TestPlanIsIdempotent(t *testing.T) {
	r := newRemote(500, "500")
	for _, mode := range []Mode{ModeScroll, ModePage} {
		e := newTestEngine(r, mode, 4)
		a, okA := e.Plan()
		b, okB := e.Plan()
		assert.Equal(t, okA, okB)
		assert.Equal(t, a, b)
	}
}

func TestReconcileFetchErrorExhausts(t *testing.T) {
	r := newRemote(100, "100")
	r.err = errors.New("boom")
	e := newTestEngine(r, ModeScroll, 1)

	out, err := e.Reconcile(context.Background())
	require.Error(t, err)
	assert.True(t, out.Exhausted)
	assert.True(t, e.Cursor().Exhausted)
	assert.Equal(t, 0, e.Collection().Len())
}

func TestApplyDropsStaleResponses(t *testing.T) {
	r := newRemote(500, "500")
	e := newTestEngine(r, ModePage, 3)
	ctx := context.Background()

	older, ok := e.Begin()
	require.True(t, ok)
	e.GoTo(7)
	newer, ok := e.Begin()
	require.True(t, ok)
	require.Greater(t, newer.Seq, older.Seq)

	newPage, err := e.Fetch(ctx, newer)
	require.NoError(t, err)
	oldPage, err := e.Fetch(ctx, older)
	require.NoError(t, err)

	out := e.Apply(newer, newPage, nil)
	assert.True(t, out.Applied())
	out = e.Apply(older, oldPage, nil)
	assert.True(t, out.Stale)

	assert.Equal(t, 190, e.Collection().Len())
	first, ok := e.Collection().At(90)
	require.True(t, ok)
	assert.Equal(t, "r090", first.ID)
}

func TestResetInvalidatesInFlight(t *testing.T) {
	r := newRemote(500, "500")
	e := newTestEngine(r, ModeScroll, 1)

	req, ok := e.Begin()
	require.True(t, ok)
	page, err := e.Fetch(context.Background(), req)
	require.NoError(t, err)

	e.Reset(Context{Mode: ModePage, Page: 1})
	out := e.Apply(req, page, nil)
	assert.True(t, out.Stale)
	assert.Equal(t, 0, e.Collection().Len())
}

func TestClampToMax(t *testing.T) {
	r := newRemote(37, "37")
	e := newTestEngine(r, ModePage, 1)
	ctx := context.Background()

	_, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, e.Navigator().MaxPage())

	e.GoTo(5)
	page, clamped := e.ClampToMax()
	assert.True(t, clamped)
	assert.Equal(t, 3, page)
	assert.Equal(t, 3, e.Cursor().Page)
	assert.Equal(t, 3, e.Cursor().Requested)
}

func TestClampToSinglePage(t *testing.T) {
	r := newRemote(5, "5")
	e := newTestEngine(r, ModePage, 1)
	_, err := e.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, e.Navigator().MaxPage())

	e.GoTo(4)
	page, clamped := e.ClampToMax()
	assert.True(t, clamped)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, e.Cursor().Requested)
}

func TestRefreshClampsShrunkListingToOnePage(t *testing.T) {
	r := newRemote(16, "16")
	e := newTestEngine(r, ModePage, 2)
	ctx := context.Background()

	_, err := e.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, e.Navigator().MaxPage())

	r.records = r.records[:10]
	for i := range r.records {
		r.records[i].Count = "10"
	}
	out, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, out.Clamped)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 1, e.Cursor().Page)
	assert.Len(t, e.Window().Items, 10)
}

func TestPageBackJumpKeepsAlignment(t *testing.T) {
	r := newRemote(250, "250")
	e := newTestEngine(r, ModePage, 1)
	ctx := context.Background()

	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	e.GoTo(10)
	require.True(t, e.NeedsFill())
	e.Rearm()
	out, err := e.Reconcile(ctx)
	require.NoError(t, err)
	require.True(t, out.Padded)

	e.GoTo(2)
	require.True(t, e.NeedsFill())
	e.Rearm()
	out, err = e.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, out.Padded)
	assert.False(t, e.NeedsFill())

	c := e.Collection()
	for i := 0; i < c.Len(); i++ {
		if item, ok := c.At(i); ok {
			assert.Equal(t, fmt.Sprintf("r%03d", i), item.ID, "slot %d", i)
		}
	}
	w := e.Window()
	require.Len(t, w.Items, 15)
	assert.Equal(t, "r015", w.Items[0].ID)

	e.GoTo(10)
	assert.False(t, e.NeedsFill(), "page 10 survives the back-jump")
	assert.Equal(t, "r135", e.Window().Items[0].ID)
}

func TestPageEqualToRealCountIsNotPadded(t *testing.T) {
	r := newRemote(300, "300")
	r.batch = 10
	e := NewEngine[rec](r, recID, recCount, WithConfig(Config{PageSize: 10, FetchBatch: 10}))
	e.Reset(Context{Mode: ModePage, Page: 1})
	ctx := context.Background()

	_, err := e.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, e.Collection().Real())

	e.GoTo(2)
	out, err := e.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, out.Padded)
	assert.True(t, e.Collection().Valid(0), "first page kept")
	assert.Equal(t, 20, e.Collection().Real())
}

func TestRefreshSupersedesEarlierReconcile(t *testing.T) {
	r := newRemote(250, "250")
	e := newTestEngine(r, ModePage, 1)
	ctx := context.Background()

	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	refresh := e.BeginRefresh()
	e.GoTo(3)
	reconcile, ok := e.Begin()
	require.True(t, ok)

	before, err := e.Fetch(ctx, reconcile)
	require.NoError(t, err)
	r.records = r.records[1:]
	after, err := e.Fetch(ctx, refresh)
	require.NoError(t, err)

	out := e.Apply(reconcile, before, nil)
	require.True(t, out.Applied())
	out = e.Apply(refresh, after, nil)
	assert.True(t, out.Applied(), "refresh lands even though a newer seq applied first")

	_, _, found := e.Collection().Find("r000")
	assert.False(t, found)
	first, ok := e.Collection().At(0)
	require.True(t, ok)
	assert.Equal(t, "r001", first.ID)

	out = e.Apply(reconcile, before, nil)
	assert.True(t, out.Stale)
}

func TestRefreshMarksFetchContext(t *testing.T) {
	var marks []bool
	src := SourceFunc[rec](func(ctx context.Context, offset int) (Page[rec], error) {
		marks = append(marks, IsRefresh(ctx))
		return Page[rec]{}, nil
	})
	e := NewEngine[rec](src, recID, recCount)
	e.Reset(Context{Mode: ModeScroll})
	ctx := context.Background()

	_, err := e.Refresh(ctx)
	require.NoError(t, err)
	e.Rearm()
	_, err = e.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, marks)
}

func TestNeedsFill(t *testing.T) {
	r := newRemote(500, "500")
	e := newTestEngine(r, ModePage, 1)
	ctx := context.Background()

	assert.True(t, e.NeedsFill(), "empty collection")

	_, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, e.NeedsFill())

	e.GoTo(9)
	assert.True(t, e.NeedsFill(), "page past fetched data")

	e.Rearm()
	_, err = e.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, e.NeedsFill())

	e.GoTo(2)
	assert.True(t, e.NeedsFill(), "page over placeholders")

	e.Reset(Context{Mode: ModeScroll})
	assert.False(t, e.NeedsFill())
}

func TestNeedsFillShortLastPage(t *testing.T) {
	r := newRemote(37, "37")
	e := newTestEngine(r, ModePage, 1)
	_, err := e.Refresh(context.Background())
	require.NoError(t, err)

	e.GoTo(3)
	assert.False(t, e.NeedsFill())
	w := e.Window()
	assert.Len(t, w.Items, 7)
}

func TestWindowScrollPrefix(t *testing.T) {
	r := newRemote(250, "250")
	e := newTestEngine(r, ModeScroll, 1)
	_, err := e.Refresh(context.Background())
	require.NoError(t, err)

	w := e.Window()
	assert.Len(t, w.Items, DefaultScrollBatch)
	assert.Equal(t, 0, w.Start)

	e.Grow()
	assert.Len(t, e.Window().Items, 2*DefaultScrollBatch)
}

func TestWindowEmptySignal(t *testing.T) {
	r := newRemote(0, "0")
	for _, mode := range []Mode{ModeScroll, ModePage} {
		e := newTestEngine(r, mode, 1)
		_, err := e.Refresh(context.Background())
		require.NoError(t, err)
		assert.True(t, e.Window().Empty, mode.String())
	}
}

func TestWindowNeverYieldsPlaceholders(t *testing.T) {
	r := newRemote(500, "500")
	e := newTestEngine(r, ModePage, 3)
	_, err := e.Reconcile(context.Background())
	require.NoError(t, err)

	e.GoTo(1)
	w := e.Window()
	assert.True(t, w.Empty)
	assert.Equal(t, 0, w.Start)
}

func TestScrollGrowthStateMachine(t *testing.T) {
	r := newRemote(125, "125")
	e := newTestEngine(r, ModeScroll, 1)
	ctx := context.Background()

	_, err := e.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, e.Cursor().Visible)

	for i := 0; i < 9; i++ {
		_, err := e.Bottom(ctx)
		require.NoError(t, err)
		assert.Equal(t, GrowthIdle, e.Growth())
	}
	assert.Equal(t, 100, e.Cursor().Visible)

	out, err := e.Bottom(ctx)
	require.NoError(t, err)
	assert.True(t, out.Applied())
	assert.Equal(t, 25, out.Fetched)
	assert.True(t, e.Cursor().Exhausted)
	assert.Equal(t, 110, e.Cursor().Visible)
	assert.Equal(t, GrowthIdle, e.Growth())

	for i := 0; i < 3; i++ {
		_, err := e.Bottom(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 125, e.Cursor().Visible)
	assert.Equal(t, GrowthExhausted, e.Growth())

	calls := len(r.offsets)
	out, err = e.Bottom(ctx)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, calls, len(r.offsets))
}

func TestSetContextModeFlipResets(t *testing.T) {
	r := newRemote(250, "250")
	e := newTestEngine(r, ModeScroll, 1)
	_, err := e.Refresh(context.Background())
	require.NoError(t, err)

	assert.False(t, e.SetContext(Context{Mode: ModeScroll, Page: 1}))
	assert.True(t, e.SetContext(Context{Mode: ModePage, Page: 4}))
	assert.Equal(t, 1, e.Cursor().Page)
	assert.Equal(t, 0, e.Collection().Len())
	assert.False(t, e.Cursor().Exhausted)

	assert.False(t, e.SetContext(Context{Mode: ModePage, Page: 4}))
	assert.Equal(t, 4, e.Cursor().Page)
}

type recordingMutator struct {
	calls []string
	err   error
	after func()
}

func (m *recordingMutator) Mutate(_ context.Context, action Action, item rec) error {
	m.calls = append(m.calls, string(action)+":"+item.ID)
	if m.err != nil {
		return m.err
	}
	if m.after != nil {
		m.after()
	}
	return nil
}

func TestMutateRefreshesAndClamps(t *testing.T) {
	r := newRemote(31, "31")
	e := newTestEngine(r, ModePage, 1)
	ctx := context.Background()
	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	e.GoTo(3)
	require.False(t, e.NeedsFill())

	target, ok := e.Collection().At(30)
	require.True(t, ok)

	m := &recordingMutator{after: func() {
		r.records = r.records[:30]
		for i := range r.records {
			r.records[i].Count = "30"
		}
	}}
	out, err := e.Mutate(ctx, m, ActionApprove, target)
	require.NoError(t, err)

	assert.Equal(t, []string{"approve:r030"}, m.calls)
	assert.True(t, out.Clamped)
	assert.Equal(t, 2, e.Cursor().Page)
	assert.Equal(t, 30, e.Collection().Len())
	_, _, found := e.Collection().Find("r030")
	assert.False(t, found)
}

func TestMutateFailureLeavesStateUntouched(t *testing.T) {
	r := newRemote(40, "40")
	e := newTestEngine(r, ModeScroll, 1)
	ctx := context.Background()
	_, err := e.Refresh(ctx)
	require.NoError(t, err)

	before := ids(e.Collection().Items())
	cur := e.Cursor()
	item, _ := e.Collection().At(0)

	m := &recordingMutator{err: errors.New("forbidden")}
	_, err = e.Mutate(ctx, m, ActionReject, item)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reject r000")

	if diff := cmp.Diff(before, ids(e.Collection().Items())); diff != "" {
		t.Errorf("collection changed after failed mutation (-want +got):\n%s", diff)
	}
	assert.Equal(t, cur, e.Cursor())
	assert.Equal(t, []int{0}, r.offsets)
}

func TestObserverSeesEveryApply(t *testing.T) {
	r := newRemote(150, "150")
	var seen []Outcome
	e := NewEngine[rec](r, recID, recCount, WithObserver(func(_ Request, out Outcome, _ time.Duration) {
		seen = append(seen, out)
	}), WithConfig(Config{FetchBatch: 100}))
	ctx := context.Background()

	_, err := e.Refresh(ctx)
	require.NoError(t, err)
	_, err = e.Reconcile(ctx)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.True(t, seen[0].HasMore)
	assert.True(t, seen[1].Exhausted)
	assert.Equal(t, DefaultPageSize, e.Config().PageSize)
}

func TestNoSource(t *testing.T) {
	e := NewEngine[rec](nil, recID, recCount)
	_, err := e.Reconcile(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Page")
	require.NoError(t, err)
	assert.Equal(t, ModePage, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeScroll, m)

	_, err = ParseMode("grid")
	assert.Error(t, err)
}
