package paging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Growth is the scroll-mode growth state.
type Growth int

const (
	GrowthIdle Growth = iota
	GrowthGrowing
	GrowthExhausted
)

func (g Growth) String() string {
	switch g {
	case GrowthIdle:
		return "idle"
	case GrowthGrowing:
		return "growing"
	case GrowthExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Request is a planned fetch. Seq orders responses: a response is applied
// only if its Seq is newer than the last applied one.
type Request struct {
	Seq     uint64
	Offset  int
	Mode    Mode
	Page    int
	Refresh bool
}

// Outcome describes what Apply did with a response.
type Outcome struct {
	Seq       uint64
	Skipped   bool // nothing to fetch
	Stale     bool // response overtaken by a newer request or a reset
	Padded    bool
	HasMore   bool
	Exhausted bool
	Fetched   int
	Clamped   bool
	Page      int
	Err       error
}

// Applied reports whether the response changed engine state.
func (o Outcome) Applied() bool { return !o.Skipped && !o.Stale }

// Observer is told about every fetch the engine applies or drops.
type Observer func(req Request, out Outcome, elapsed time.Duration)

// Option configures an Engine.
type Option func(*options)

type options struct {
	cfg      Config
	log      *zap.Logger
	observer Observer
}

// WithConfig sets page and batch widths.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithObserver registers a fetch observer.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// Engine synchronizes a Collection with a Source under scroll or page mode.
// It is not safe for concurrent use; callers serialize state transitions on
// one goroutine and may run Source fetches elsewhere via Begin and Apply.
type Engine[T any] struct {
	cfg      Config
	src      Source[T]
	identity func(T) string
	coll     *Collection[T]
	mode     Mode
	cur      Cursor
	growth   Growth
	issued   uint64
	applied  uint64
	log      *zap.Logger
	observer Observer

	// newest applied refresh or reset; older refreshes are stale
	refreshed uint64
}

// NewEngine returns an engine in scroll mode on page 1. count extracts the
// remote total carried on each item; it may be nil.
func NewEngine[T any](src Source[T], identity func(T) string, count func(T) string, opts ...Option) *Engine[T] {
	o := options{cfg: DefaultConfig(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[T]{
		cfg:      o.cfg.normalized(),
		src:      src,
		identity: identity,
		coll:     NewCollection(identity, count),
		cur:      Cursor{Page: 1, Requested: 1},
		log:      o.log,
		observer: o.observer,
	}
}

// Config returns the effective widths.
func (e *Engine[T]) Config() Config { return e.cfg }

// Cursor returns a copy of the cursor state.
func (e *Engine[T]) Cursor() Cursor { return e.cur }

// Mode returns the current browsing mode.
func (e *Engine[T]) Mode() Mode { return e.mode }

// Growth returns the scroll growth state.
func (e *Engine[T]) Growth() Growth { return e.growth }

// Collection exposes the backing collection for read access.
func (e *Engine[T]) Collection() *Collection[T] { return e.coll }

// Context returns the current pagination context.
func (e *Engine[T]) Context() Context {
	return Context{Mode: e.mode, Page: e.cur.Page, PageSize: e.cfg.PageSize}
}

// Reset clears the collection and cursor and invalidates in-flight requests.
func (e *Engine[T]) Reset(c Context) {
	if c.PageSize > 0 {
		e.cfg.PageSize = c.PageSize
	}
	page := c.Page
	if page < 1 {
		page = 1
	}
	e.mode = c.Mode
	e.coll.Reset()
	e.cur = Cursor{Page: page, Requested: page}
	e.growth = GrowthIdle
	e.issued++
	e.applied = e.issued
	e.refreshed = e.issued
	e.log.Debug("reset", zap.Stringer("mode", e.mode), zap.Int("page", page))
}

// SetContext applies an externally owned context. A mode flip resets the
// engine to page 1 and returns true; the caller must then Refresh.
func (e *Engine[T]) SetContext(c Context) bool {
	if c.Mode != e.mode {
		e.Reset(Context{Mode: c.Mode, Page: 1, PageSize: c.PageSize})
		return true
	}
	if c.Page > 0 && c.Page != e.cur.Page {
		e.GoTo(c.Page)
	}
	return false
}

// Rearm clears the exhausted flag so the next Reconcile fetches again.
func (e *Engine[T]) Rearm() {
	e.cur.Exhausted = false
	if e.growth == GrowthExhausted {
		e.growth = GrowthIdle
	}
}

// Plan computes the next reconcile fetch without changing any state.
// ok is false when there is nothing to fetch.
func (e *Engine[T]) Plan() (req Request, ok bool) {
	if e.cur.Exhausted {
		return Request{}, false
	}
	next := e.cur.Offset + e.cfg.FetchBatch
	if e.mode == ModePage {
		next = (e.cur.Page - 1) * e.cfg.PageSize
		if next == 0 && e.coll.Valid(0) {
			return Request{}, false
		}
	}
	return Request{Offset: next, Mode: e.mode, Page: e.cur.Page}, true
}

// Begin plans the next reconcile fetch and stamps it with a sequence number.
func (e *Engine[T]) Begin() (Request, bool) {
	req, ok := e.Plan()
	if !ok {
		return req, false
	}
	e.issued++
	req.Seq = e.issued
	return req, true
}

// BeginRefresh stamps a full refetch of offset 0. When it lands it
// supersedes every reconcile issued before it, whatever their order.
func (e *Engine[T]) BeginRefresh() Request {
	e.issued++
	return Request{Seq: e.issued, Offset: 0, Mode: e.mode, Page: e.cur.Page, Refresh: true}
}

// Fetch runs req against the source. It does not touch engine state and may
// be called from another goroutine. Refresh fetches carry a ctx marker, see
// IsRefresh.
func (e *Engine[T]) Fetch(ctx context.Context, req Request) (Page[T], error) {
	if e.src == nil {
		return Page[T]{}, ErrNoSource
	}
	if req.Refresh {
		ctx = context.WithValue(ctx, refreshKey{}, true)
	}
	return e.src.Fetch(ctx, req.Offset)
}

// Apply merges the response to req into the collection.
func (e *Engine[T]) Apply(req Request, page Page[T], err error) Outcome {
	return e.apply(req, page, err, 0)
}

// ApplyAfter is Apply with the fetch duration passed on to the observer.
func (e *Engine[T]) ApplyAfter(req Request, page Page[T], err error, elapsed time.Duration) Outcome {
	return e.apply(req, page, err, elapsed)
}

func (e *Engine[T]) apply(req Request, page Page[T], err error, elapsed time.Duration) Outcome {
	out := Outcome{Seq: req.Seq, Fetched: len(page.Items)}
	defer func() {
		if e.observer != nil {
			e.observer(req, out, elapsed)
		}
	}()

	if req.Refresh {
		if req.Seq <= e.refreshed {
			out.Stale = true
			e.log.Debug("stale refresh dropped",
				zap.Uint64("seq", req.Seq), zap.Uint64("refreshed", e.refreshed))
			return out
		}
		e.refreshed = req.Seq
		e.applied = e.issued
		e.applyRefresh(page, err, &out)
		return out
	}

	if req.Seq <= e.applied {
		out.Stale = true
		e.log.Debug("stale response dropped",
			zap.Uint64("seq", req.Seq), zap.Uint64("applied", e.applied), zap.Int("offset", req.Offset))
		return out
	}
	e.applied = req.Seq

	if err != nil {
		e.log.Warn("fetch failed", zap.Int("offset", req.Offset), zap.Error(err))
		e.cur.Exhausted = true
		out.Exhausted = true
		out.Err = err
		return out
	}

	items := page.Items
	out.HasMore = len(items) >= e.cfg.FetchBatch
	if req.Mode == ModePage && e.coll.Real() < req.Offset {
		out.Padded = true
	}
	write := func() {
		switch {
		case out.Padded:
			e.coll.PadWrite(req.Offset, items)
		case req.Mode == ModePage:
			e.coll.WriteAt(req.Offset, items)
		default:
			e.coll.MergeWrite(items)
		}
	}

	if out.HasMore {
		e.cur.Offset = req.Offset
		write()
	} else {
		if len(items) > 0 {
			write()
		}
		e.cur.Exhausted = true
	}
	out.Exhausted = e.cur.Exhausted
	out.Page, out.Clamped = e.ClampToMax()

	e.log.Debug("reconciled",
		zap.Uint64("seq", req.Seq),
		zap.Stringer("mode", req.Mode),
		zap.Int("offset", req.Offset),
		zap.Int("fetched", len(items)),
		zap.Bool("padded", out.Padded),
		zap.Bool("exhausted", out.Exhausted))
	return out
}

func (e *Engine[T]) applyRefresh(page Page[T], err error, out *Outcome) {
	if err != nil {
		e.log.Warn("refresh failed", zap.Error(err))
		e.cur.Exhausted = true
		out.Exhausted = true
		out.Err = err
		return
	}
	e.coll.Reset()
	e.coll.MergeWrite(page.Items)
	e.cur.Offset = 0
	e.cur.Exhausted = false
	e.growth = GrowthIdle
	out.HasMore = len(page.Items) >= e.cfg.FetchBatch
	if e.mode == ModeScroll && e.cur.Visible < e.cfg.ScrollBatch {
		e.cur.Visible = min(e.cfg.ScrollBatch, e.contiguous())
	}
	out.Page, out.Clamped = e.ClampToMax()
	e.log.Debug("refreshed", zap.Int("fetched", len(page.Items)), zap.String("total", e.coll.Total()))
}

// Reconcile fetches the next batch and merges it. A fetch error exhausts the
// engine and is returned for the caller to surface.
func (e *Engine[T]) Reconcile(ctx context.Context) (Outcome, error) {
	req, ok := e.Begin()
	if !ok {
		return Outcome{Skipped: true}, nil
	}
	start := time.Now()
	page, err := e.Fetch(ctx, req)
	out := e.apply(req, page, err, time.Since(start))
	return out, out.Err
}

// Refresh refetches offset 0 and replaces the collection.
func (e *Engine[T]) Refresh(ctx context.Context) (Outcome, error) {
	req := e.BeginRefresh()
	start := time.Now()
	page, err := e.Fetch(ctx, req)
	out := e.apply(req, page, err, time.Since(start))
	return out, out.Err
}

// Mutate applies action to item on the server, then refetches from offset 0
// and re-clamps the page. A failed mutation leaves local state untouched.
func (e *Engine[T]) Mutate(ctx context.Context, m Mutator[T], action Action, item T) (Outcome, error) {
	if err := m.Mutate(ctx, action, item); err != nil {
		return Outcome{Skipped: true}, fmt.Errorf("%s %s: %w", action, e.identity(item), err)
	}
	return e.Refresh(ctx)
}

// contiguous counts real slots from 0 up to the first gap.
func (e *Engine[T]) contiguous() int {
	n := 0
	for e.coll.Valid(n) {
		n++
	}
	return n
}

// Navigator returns the page arithmetic for the current state.
func (e *Engine[T]) Navigator() Navigator {
	return Navigator{
		Page:     e.cur.Page,
		Total:    e.coll.Total(),
		HasItems: e.coll.Len() > 0,
		PageSize: e.cfg.PageSize,
	}
}

// ClampToMax pulls both the effective and the requested page down to
// MaxPage. Nothing is clamped while the collection is empty, since the
// maximum is not known yet.
func (e *Engine[T]) ClampToMax() (int, bool) {
	if e.coll.Len() == 0 {
		return e.cur.Page, false
	}
	max := e.Navigator().MaxPage()
	clamped := false
	if e.cur.Requested > max {
		e.cur.Requested = max
		clamped = true
	}
	if e.cur.Page > max {
		e.cur.Page = max
		clamped = true
	}
	if clamped {
		e.log.Debug("page clamped", zap.Int("page", e.cur.Page), zap.Int("max", max))
	}
	return e.cur.Page, clamped
}

// GoTo requests page p. It is not clamped until data confirms the maximum.
func (e *Engine[T]) GoTo(p int) {
	if p < 1 {
		p = 1
	}
	e.cur.Page = p
	e.cur.Requested = p
}

func (e *Engine[T]) First() { e.GoTo(e.Navigator().First()) }
func (e *Engine[T]) Prev()  { e.GoTo(e.Navigator().Prev()) }
func (e *Engine[T]) Next()  { e.GoTo(e.Navigator().Next()) }
func (e *Engine[T]) Last()  { e.GoTo(e.Navigator().Last()) }

// NeedsFill reports whether the current page in page mode is missing data:
// its first slot is a placeholder, or its last needed slot is absent.
func (e *Engine[T]) NeedsFill() bool {
	if e.mode != ModePage {
		return false
	}
	off := (e.cur.Page - 1) * e.cfg.PageSize
	if off < e.coll.Len() && !e.coll.Valid(off) {
		return true
	}
	last := off + e.cfg.PageSize
	if total, ok := ParseTotal(e.coll.Total()); ok && total < last {
		last = total
	}
	if last < 1 {
		return false
	}
	return !e.coll.Valid(last - 1)
}

// Grow advances the scroll window by up to ScrollBatch fetched items. It
// returns true when it ran out of fetched items and a Reconcile is needed
// before growth can resume.
func (e *Engine[T]) Grow() bool {
	if e.mode != ModeScroll || e.growth == GrowthExhausted {
		return false
	}
	e.growth = GrowthGrowing
	for added := 0; added < e.cfg.ScrollBatch; added++ {
		if !e.coll.Valid(e.cur.Visible) {
			if e.cur.Exhausted {
				e.growth = GrowthExhausted
				return false
			}
			return true
		}
		e.cur.Visible++
	}
	e.growth = GrowthIdle
	return false
}

// Bottom handles the viewport reaching the end of the rendered window.
func (e *Engine[T]) Bottom(ctx context.Context) (Outcome, error) {
	if !e.Grow() {
		return Outcome{Skipped: true}, nil
	}
	out, err := e.Reconcile(ctx)
	if out.Applied() {
		e.Grow()
	}
	return out, err
}
