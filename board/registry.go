package board

import (
	"go.uber.org/zap"

	"github.com/miosa/modq/paging"
)

// Registry holds one Binding per queue.
type Registry struct {
	bindings map[Queue]Binding
}

// NewRegistry binds every queue to api. opts apply to each engine.
func NewRegistry(api API, log *zap.Logger, opts ...paging.Option) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{bindings: make(map[Queue]Binding, len(queues))}
	r.bindings[Posts] = bind(postsDef(api), log, opts...)
	r.bindings[PostEdits] = bind(postEditsDef(api), log, opts...)
	r.bindings[Notes] = bind(notesDef(api), log, opts...)
	r.bindings[Reports] = bind(reportsDef(api), log, opts...)
	r.bindings[GroupEdits] = bind(groupEditsDef(api), log, opts...)
	r.bindings[GroupDeletions] = bind(groupDeletionsDef(api), log, opts...)
	return r
}

// Get returns the binding for q.
func (r *Registry) Get(q Queue) (Binding, error) {
	b, ok := r.bindings[q]
	if !ok {
		return nil, ErrUnknownQueue
	}
	return b, nil
}

// MustGet is Get for queues known to exist.
func (r *Registry) MustGet(q Queue) Binding {
	b, err := r.Get(q)
	if err != nil {
		panic(err)
	}
	return b
}
