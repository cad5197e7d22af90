// Package msg defines the tea.Msg types dispatched within the modq TUI.
// It imports only paging so model and app can both depend on it.
package msg

import "github.com/miosa/modq/paging"

// -- Board I/O --

// FetchResult carries a finished queue fetch. Apply merges it into the
// engine and must run inside Update.
type FetchResult struct {
	Queue string
	Req   paging.Request
	Apply func() paging.Outcome
}

// MutationResult carries a finished approve or reject.
type MutationResult struct {
	Queue  string
	ID     string
	Action paging.Action
	Err    error
}

// MediaResult carries a rendered thumbnail for the detail view.
type MediaResult struct {
	Queue string
	ID    string
	Path  string
	Thumb string
	Err   error
}

// -- Persistence --

// PrefLoaded carries the saved browsing position of a queue.
type PrefLoaded struct {
	Queue string
	Mode  paging.Mode
	Page  int
	Found bool
	Err   error
}

// ActionRecorded reports a journal write.
type ActionRecorded struct {
	Err error
}

// -- UI events --

// TickMsg for periodic timer updates.
type TickMsg struct{}

// ReachedBottom when the queue list cursor moves past its last row.
type ReachedBottom struct{}
