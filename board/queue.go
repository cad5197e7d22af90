// Package board binds each moderation queue of the board API to a paging
// engine and exposes them behind one type-erased interface.
package board

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownQueue = errors.New("unknown queue")
	ErrNotFound     = errors.New("item not found")
)

// Queue names a moderation queue.
type Queue string

const (
	Posts          Queue = "posts"
	PostEdits      Queue = "post-edits"
	Notes          Queue = "notes"
	Reports        Queue = "reports"
	GroupEdits     Queue = "group-edits"
	GroupDeletions Queue = "group-deletions"
)

var queues = []Queue{Posts, PostEdits, Notes, Reports, GroupEdits, GroupDeletions}

// Queues lists every queue in tab order.
func Queues() []Queue {
	out := make([]Queue, len(queues))
	copy(out, queues)
	return out
}

// ParseQueue accepts a queue name, case-insensitively, with '_' or '-'.
func ParseQueue(s string) (Queue, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, q := range queues {
		if string(q) == norm {
			return q, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQueue, s)
}

// Title is the tab label.
func (q Queue) Title() string {
	switch q {
	case Posts:
		return "Posts"
	case PostEdits:
		return "Post Edits"
	case Notes:
		return "Notes"
	case Reports:
		return "Reports"
	case GroupEdits:
		return "Group Edits"
	case GroupDeletions:
		return "Group Deletions"
	}
	return string(q)
}

func (q Queue) String() string { return string(q) }

// Row is a queue item flattened for display. Detail is markdown; Media is
// the board path of the first attachment.
type Row struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Detail   string `json:"-"`
	Media    string `json:"media,omitempty"`
}
