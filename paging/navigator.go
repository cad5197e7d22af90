package paging

import (
	"math"
	"strconv"
	"strings"
)

const (
	desktopButtons = 7
	mobileButtons  = 3
)

// Navigator is pure page-number arithmetic over a known or unknown total.
type Navigator struct {
	Page     int
	Total    string // remote total as reported; may be non-numeric
	HasItems bool
	PageSize int
}

// ParseTotal parses a remote total. ok is false for anything non-numeric.
func ParseTotal(s string) (n int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// MaxPage is 1 with no items, UnknownMaxPage with a non-numeric total and
// ceil(total/PageSize) otherwise.
func (n Navigator) MaxPage() int {
	if !n.HasItems {
		return 1
	}
	total, ok := ParseTotal(n.Total)
	if !ok {
		return UnknownMaxPage
	}
	size := n.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	max := (total + size - 1) / size
	if max < 1 {
		max = 1
	}
	return max
}

// Clamp bounds page to [1, MaxPage()].
func (n Navigator) Clamp(page int) int {
	if max := n.MaxPage(); page > max {
		page = max
	}
	if page < 1 {
		page = 1
	}
	return page
}

func (n Navigator) First() int { return 1 }
func (n Navigator) Prev() int  { return n.Clamp(n.Page - 1) }
func (n Navigator) Next() int  { return n.Clamp(n.Page + 1) }
func (n Navigator) Last() int  { return n.MaxPage() }

// Buttons returns the neighbor page numbers shown around the active page.
// The window holds up to 7 buttons (3 on mobile) and slides right as the
// active page nears the last one, so it never proposes a page past MaxPage.
func (n Navigator) Buttons(mobile bool) []int {
	max := n.MaxPage()
	amount := desktopButtons
	if mobile {
		amount = mobileButtons
	}
	if max < amount {
		amount = max
	}

	page := n.Page
	var increment int
	if mobile {
		increment = -2
		if page > max-2 {
			increment = -3
		}
		if page > max-1 {
			increment = -4
		}
	} else {
		increment = -3
		if page > max-3 {
			increment = -4
		}
		if page > max-2 {
			increment = -5
		}
		if page > max-1 {
			increment = -6
		}
	}
	// keep the active page inside the window
	if increment < -(amount - 1) {
		increment = -(amount - 1)
	}

	buttons := make([]int, 0, amount)
	for len(buttons) < amount {
		p := page + increment
		if p > max {
			break
		}
		if p >= 1 {
			buttons = append(buttons, p)
		}
		increment++
	}
	return buttons
}
