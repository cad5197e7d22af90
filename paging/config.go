// Package paging keeps a locally held, possibly sparse collection in step
// with an offset-paged remote listing. It supports two browsing modes:
// continuous scroll and fixed-size numbered pages.
package paging

import (
	"fmt"
	"strings"
)

// Default sizes.
const (
	DefaultPageSize    = 15
	DefaultFetchBatch  = 100
	DefaultScrollBatch = 10

	// UnknownMaxPage is reported by MaxPage when the remote total is not a number.
	UnknownMaxPage = 10000
)

// Mode selects how the collection is browsed.
type Mode int

const (
	ModeScroll Mode = iota // infinite accumulation
	ModePage               // fixed-size numbered pages
)

func (m Mode) String() string {
	switch m {
	case ModeScroll:
		return "scroll"
	case ModePage:
		return "page"
	default:
		return "unknown"
	}
}

// ParseMode accepts "scroll" or "page".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scroll", "":
		return ModeScroll, nil
	case "page", "pages":
		return ModePage, nil
	}
	return ModeScroll, fmt.Errorf("unknown mode %q", s)
}

// Config tunes page and batch widths. Zero fields take the defaults.
type Config struct {
	PageSize    int // items per display page
	FetchBatch  int // items per network page
	ScrollBatch int // items materialized per scroll step
}

// DefaultConfig returns 15/100/10.
func DefaultConfig() Config {
	return Config{
		PageSize:    DefaultPageSize,
		FetchBatch:  DefaultFetchBatch,
		ScrollBatch: DefaultScrollBatch,
	}
}

func (c Config) normalized() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.FetchBatch <= 0 {
		c.FetchBatch = DefaultFetchBatch
	}
	if c.ScrollBatch <= 0 {
		c.ScrollBatch = DefaultScrollBatch
	}
	return c
}

// Context is the externally owned browsing state handed to an Engine.
type Context struct {
	Mode     Mode
	Page     int
	PageSize int
}

// Cursor is the per-engine position state.
type Cursor struct {
	Offset    int  // last contiguous fetch offset
	Page      int  // effective page, 1-based
	Requested int  // page asked for before the maximum was known
	Exhausted bool // no more server data
	Visible   int  // scroll mode: items materialized into the window
}
