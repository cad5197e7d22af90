package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// BoardBatch is the page width of the fake board's list endpoints.
const BoardBatch = 100

// Item is one raw JSON object held by the fake board.
type Item = map[string]any

// Call is one request the fake board received.
type Call struct {
	Method string
	Path   string
	Query  map[string][]string
	Body   Item
}

type list struct {
	countField string
	items      []Item
}

// Board is an in-memory moderation board served over httptest. List
// endpoints page at BoardBatch and stamp every item with the queue total;
// fulfill and approve endpoints drop the matching item.
type Board struct {
	URL string

	mu     sync.Mutex
	lists  map[string]*list
	posts  map[string]Item
	groups map[string]Item
	assets map[string]Item
	files  map[string][]byte
	fails  map[string]failure
	calls  []Call
}

type failure struct {
	status int
	msg    string
}

// Board list endpoints.
const (
	ListPosts          = "/api/post/list/unverified"
	ListPostEdits      = "/api/post-edits/list/unverified"
	ListNotes          = "/api/note/list/unverified"
	ListReports        = "/api/search/reports"
	ListGroupEdits     = "/api/group/edit/request/list"
	ListGroupDeletions = "/api/group/delete/request/list"
)

// NewBoard starts a fake board. It is closed when the test completes.
func NewBoard(t *testing.T) *Board {
	t.Helper()
	b := &Board{
		lists: map[string]*list{
			ListPosts:          {countField: "postCount"},
			ListPostEdits:      {countField: "postCount"},
			ListNotes:          {countField: "noteCount"},
			ListReports:        {countField: "reportCount"},
			ListGroupEdits:     {countField: "requestCount"},
			ListGroupDeletions: {countField: "requestCount"},
		},
		posts:  make(map[string]Item),
		groups: make(map[string]Item),
		assets: make(map[string]Item),
		files:  make(map[string][]byte),
		fails:  make(map[string]failure),
	}
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(srv.Close)
	b.URL = srv.URL
	return b
}

// Seed appends items to a list endpoint.
func (b *Board) Seed(path string, items ...Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lists[path]
	if !ok {
		panic("testutil: unknown list " + path)
	}
	l.items = append(l.items, items...)
}

// SeedPosts appends n unverified posts with ids prefix0..prefixN-1 to path.
func (b *Board) SeedPosts(path, prefix string, n int) {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{"postID": fmt.Sprintf("%s%03d", prefix, i), "title": fmt.Sprintf("post %d", i)}
	}
	b.Seed(path, items...)
}

// Len returns how many items remain on a list endpoint.
func (b *Board) Len(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lists[path].items)
}

// AddPost registers a published post for /api/posts.
func (b *Board) AddPost(post Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts[fmt.Sprint(post["postID"])] = post
}

// AddGroup registers a published group for /api/groups/list.
func (b *Board) AddGroup(group Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.groups[fmt.Sprint(group["slug"])] = group
}

// AddAsset registers a report target, e.g. AddAsset("comment", "c1", ...).
func (b *Board) AddAsset(kind, id string, asset Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assets[kind+":"+id] = asset
}

// AddFile serves data for GET path, e.g. an attachment.
func (b *Board) AddFile(path string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[path] = data
}

// Fail makes every request to path answer status with a plain-text body.
func (b *Board) Fail(path string, status int, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.fails, path)
		return
	}
	b.fails[path] = failure{status, msg}
}

// Calls returns every request received so far.
func (b *Board) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// Mutations returns the non-GET requests as "METHOD path" in order.
func (b *Board) Mutations() []string {
	var out []string
	for _, c := range b.Calls() {
		if c.Method != http.MethodGet {
			out = append(out, c.Method+" "+c.Path)
		}
	}
	return out
}

func (b *Board) serve(w http.ResponseWriter, r *http.Request) {
	var body Item
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &body)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body})

	if f, ok := b.fails[r.URL.Path]; ok {
		http.Error(w, f.msg, f.status)
		return
	}

	if data, ok := b.files[r.URL.Path]; ok && r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
		return
	}

	q := r.URL.Query()
	if l, ok := b.lists[r.URL.Path]; ok && r.Method == http.MethodGet {
		offset, _ := strconv.Atoi(q.Get("offset"))
		b.writeList(w, l, offset)
		return
	}

	switch r.URL.Path {
	case "/api/posts":
		out := []Item{}
		for _, id := range q["postIDs"] {
			if p, ok := b.posts[id]; ok {
				out = append(out, p)
			}
		}
		writeJSON(w, out)
	case "/api/groups/list":
		out := []Item{}
		for _, key := range q["groups"] {
			for _, g := range b.groups {
				if g["slug"] == key || g["name"] == key {
					out = append(out, g)
					break
				}
			}
		}
		writeJSON(w, out)
	case "/api/comment":
		b.writeAsset(w, "comment", q.Get("commentID"))
	case "/api/thread":
		b.writeAsset(w, "thread", q.Get("threadID"))
	case "/api/reply":
		b.writeAsset(w, "reply", q.Get("replyID"))
	case "/api/post/approve", "/api/post/reject":
		b.remove(ListPosts, func(it Item) bool { return it["postID"] == body["postID"] })
		b.remove(ListPostEdits, func(it Item) bool { return it["postID"] == body["postID"] })
	case "/api/note/approve", "/api/note/reject":
		b.remove(ListNotes, func(it Item) bool {
			return it["postID"] == body["postID"] && fmt.Sprint(it["order"]) == fmt.Sprint(body["order"])
		})
	case "/api/comment/report/fulfill", "/api/thread/report/fulfill", "/api/reply/report/fulfill":
		b.remove(ListReports, func(it Item) bool { return it["reportID"] == body["reportID"] })
	case "/api/group/edit/request/fulfill":
		b.remove(ListGroupEdits, func(it Item) bool {
			return it["username"] == body["username"] && it["slug"] == body["slug"]
		})
	case "/api/group/delete/request/fulfill", "/api/group/post/delete/request/fulfill":
		b.remove(ListGroupDeletions, func(it Item) bool {
			if it["username"] != body["username"] || it["group"] != body["slug"] {
				return false
			}
			post, _ := it["post"].(Item)
			if post == nil {
				return body["postID"] == nil
			}
			return post["postID"] == body["postID"]
		})
	default:
		if r.Method == http.MethodGet {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusOK)
	}
}

func (b *Board) writeList(w http.ResponseWriter, l *list, offset int) {
	total := len(l.items)
	page := []Item{}
	if offset < total {
		end := min(offset+BoardBatch, total)
		for _, it := range l.items[offset:end] {
			cp := make(Item, len(it)+1)
			for k, v := range it {
				cp[k] = v
			}
			cp[l.countField] = total
			page = append(page, cp)
		}
	}
	writeJSON(w, page)
}

func (b *Board) writeAsset(w http.ResponseWriter, kind, id string) {
	a, ok := b.assets[kind+":"+id]
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	writeJSON(w, a)
}

func (b *Board) remove(path string, match func(Item) bool) {
	l := b.lists[path]
	kept := l.items[:0]
	for _, it := range l.items {
		if !match(it) {
			kept = append(kept, it)
		}
	}
	l.items = kept
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
