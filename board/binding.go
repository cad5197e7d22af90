package board

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/miosa/modq/client"
	"github.com/miosa/modq/metrics"
	"github.com/miosa/modq/paging"
)

// Applier merges a finished fetch into the engine. It must run on the
// goroutine that owns the binding.
type Applier func() paging.Outcome

// Job runs a mutation off the owning goroutine. On success the owner starts
// the follow-up refresh with BeginRefresh.
type Job func(ctx context.Context) error

// Binding is a queue engine with its item type erased. It is not safe for
// concurrent use except for the Applier-returning calls noted below.
type Binding interface {
	Queue() Queue

	Context() paging.Context
	Cursor() paging.Cursor
	Growth() paging.Growth
	Navigator() paging.Navigator
	Len() int
	Total() string

	Reset(c paging.Context)
	SetContext(c paging.Context) bool
	GoTo(page int)
	Rearm()
	NeedsFill() bool
	Grow() bool

	// Rows renders the current window. empty is true when there is nothing
	// to show.
	Rows() (rows []Row, empty bool)
	Row(id string) (Row, bool)

	Begin() (paging.Request, bool)
	BeginRefresh() paging.Request
	// Fetch is safe to call from any goroutine.
	Fetch(ctx context.Context, req paging.Request) Applier
	// PrepareMutation captures the item to mutate. The returned Job is safe
	// to run from any goroutine.
	PrepareMutation(action paging.Action, id string) (Job, error)

	Reconcile(ctx context.Context) (paging.Outcome, error)
	Refresh(ctx context.Context) (paging.Outcome, error)
	Bottom(ctx context.Context) (paging.Outcome, error)
	Mutate(ctx context.Context, action paging.Action, id string) (paging.Outcome, error)
}

// queueDef is everything a queue contributes on top of the engine.
type queueDef[T any] struct {
	queue    Queue
	fetch    func(ctx context.Context, offset int) ([]T, error)
	identity func(T) string
	count    func(T) string
	mutate   func(ctx context.Context, action paging.Action, item T) error
	summary  func(T) Row
}

type binding[T any] struct {
	def queueDef[T]
	eng *paging.Engine[T]
	log *zap.Logger
}

func bind[T any](def queueDef[T], log *zap.Logger, opts ...paging.Option) *binding[T] {
	log = log.With(zap.String("queue", string(def.queue)))
	src := paging.SourceFunc[T](func(ctx context.Context, offset int) (paging.Page[T], error) {
		if paging.IsRefresh(ctx) {
			ctx = client.Fresh(ctx)
		}
		items, err := def.fetch(ctx, offset)
		if err != nil {
			return paging.Page[T]{}, err
		}
		return paging.Page[T]{Items: items}, nil
	})
	opts = append([]paging.Option{
		paging.WithLogger(log.Named("paging")),
		paging.WithObserver(observe(def.queue)),
	}, opts...)
	return &binding[T]{
		def: def,
		eng: paging.NewEngine[T](src, def.identity, def.count, opts...),
		log: log,
	}
}

func observe(q Queue) paging.Observer {
	return func(req paging.Request, out paging.Outcome, elapsed time.Duration) {
		switch {
		case out.Stale:
			metrics.FetchStale(string(q))
		case out.Err != nil:
			metrics.FetchApplied(string(q), "error", elapsed)
		case req.Refresh:
			metrics.FetchApplied(string(q), "refresh", elapsed)
		case out.Exhausted:
			metrics.FetchApplied(string(q), "exhausted", elapsed)
		default:
			metrics.FetchApplied(string(q), "applied", elapsed)
		}
	}
}

func (b *binding[T]) Queue() Queue                     { return b.def.queue }
func (b *binding[T]) Context() paging.Context          { return b.eng.Context() }
func (b *binding[T]) Cursor() paging.Cursor            { return b.eng.Cursor() }
func (b *binding[T]) Growth() paging.Growth            { return b.eng.Growth() }
func (b *binding[T]) Navigator() paging.Navigator      { return b.eng.Navigator() }
func (b *binding[T]) Len() int                         { return b.eng.Collection().Len() }
func (b *binding[T]) Total() string                    { return b.eng.Collection().Total() }
func (b *binding[T]) Reset(c paging.Context)           { b.eng.Reset(c) }
func (b *binding[T]) SetContext(c paging.Context) bool { return b.eng.SetContext(c) }
func (b *binding[T]) GoTo(page int)                    { b.eng.GoTo(page) }
func (b *binding[T]) Rearm()                           { b.eng.Rearm() }
func (b *binding[T]) NeedsFill() bool                  { return b.eng.NeedsFill() }
func (b *binding[T]) Grow() bool                       { return b.eng.Grow() }
func (b *binding[T]) Begin() (paging.Request, bool)    { return b.eng.Begin() }
func (b *binding[T]) BeginRefresh() paging.Request     { return b.eng.BeginRefresh() }

func (b *binding[T]) Rows() ([]Row, bool) {
	w := b.eng.Window()
	rows := make([]Row, 0, len(w.Items))
	for _, item := range w.Items {
		rows = append(rows, b.def.summary(item))
	}
	return rows, w.Empty
}

func (b *binding[T]) Row(id string) (Row, bool) {
	item, _, ok := b.eng.Collection().Find(id)
	if !ok {
		return Row{}, false
	}
	return b.def.summary(item), true
}

func (b *binding[T]) Fetch(ctx context.Context, req paging.Request) Applier {
	start := time.Now()
	page, err := b.eng.Fetch(ctx, req)
	elapsed := time.Since(start)
	return func() paging.Outcome {
		out := b.eng.ApplyAfter(req, page, err, elapsed)
		return out
	}
}

func (b *binding[T]) mutator() paging.Mutator[T] {
	return paging.MutatorFunc[T](func(ctx context.Context, action paging.Action, item T) error {
		err := b.def.mutate(ctx, action, item)
		metrics.Mutation(string(b.def.queue), string(action), err)
		if err != nil {
			b.log.Warn("mutation failed",
				zap.String("action", string(action)),
				zap.String("id", b.def.identity(item)),
				zap.Error(err))
		}
		return err
	})
}

func (b *binding[T]) find(id string) (T, error) {
	item, _, ok := b.eng.Collection().Find(id)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %q: %w", b.def.queue, id, ErrNotFound)
	}
	return item, nil
}

func (b *binding[T]) PrepareMutation(action paging.Action, id string) (Job, error) {
	item, err := b.find(id)
	if err != nil {
		return nil, err
	}
	m := b.mutator()
	return func(ctx context.Context) error {
		if err := m.Mutate(ctx, action, item); err != nil {
			return fmt.Errorf("%s %s: %w", action, id, err)
		}
		return nil
	}, nil
}

func (b *binding[T]) Reconcile(ctx context.Context) (paging.Outcome, error) {
	return b.eng.Reconcile(ctx)
}

func (b *binding[T]) Refresh(ctx context.Context) (paging.Outcome, error) {
	return b.eng.Refresh(ctx)
}

func (b *binding[T]) Bottom(ctx context.Context) (paging.Outcome, error) {
	return b.eng.Bottom(ctx)
}

func (b *binding[T]) Mutate(ctx context.Context, action paging.Action, id string) (paging.Outcome, error) {
	item, err := b.find(id)
	if err != nil {
		return paging.Outcome{Skipped: true}, err
	}
	return b.eng.Mutate(ctx, b.mutator(), action, item)
}
