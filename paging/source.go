package paging

import (
	"context"
	"errors"
)

// ErrNoSource is returned by blocking calls on an engine built without a Source.
var ErrNoSource = errors.New("paging: no source")

// Page is one network page returned by a Source.
type Page[T any] struct {
	Items []T
}

type refreshKey struct{}

// IsRefresh reports whether ctx belongs to a refresh fetch. Sources backed by
// a response cache should bypass it.
func IsRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}

// Source fetches the page starting at an absolute record offset.
type Source[T any] interface {
	Fetch(ctx context.Context, offset int) (Page[T], error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc[T any] func(ctx context.Context, offset int) (Page[T], error)

// Fetch calls f.
func (f SourceFunc[T]) Fetch(ctx context.Context, offset int) (Page[T], error) {
	return f(ctx, offset)
}

// Action is a moderation decision.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Mutator applies a moderation decision to one item on the server.
type Mutator[T any] interface {
	Mutate(ctx context.Context, action Action, item T) error
}

// MutatorFunc adapts a plain function to Mutator.
type MutatorFunc[T any] func(ctx context.Context, action Action, item T) error

// Mutate calls f.
func (f MutatorFunc[T]) Mutate(ctx context.Context, action Action, item T) error {
	return f(ctx, action, item)
}
