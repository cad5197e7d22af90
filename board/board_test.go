package board

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miosa/modq/client"
	"github.com/miosa/modq/paging"
	"github.com/miosa/modq/testutil"
)

func newTestRegistry(t *testing.T) (*Registry, *testutil.Board) {
	t.Helper()
	fake := testutil.NewBoard(t)
	c := client.New(fake.URL, client.WithCacheTTL(0))
	return NewRegistry(c, testutil.Logger()), fake
}

func rowIDs(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestParseQueue(t *testing.T) {
	tests := []struct {
		in      string
		want    Queue
		wantErr bool
	}{
		{"posts", Posts, false},
		{"Post_Edits", PostEdits, false},
		{" group-deletions ", GroupDeletions, false},
		{"comments", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQueue(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownQueue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryHasEveryQueue(t *testing.T) {
	reg, _ := newTestRegistry(t)
	for _, q := range Queues() {
		b, err := reg.Get(q)
		require.NoError(t, err, q)
		assert.Equal(t, q, b.Queue())
	}
	_, err := reg.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownQueue)
}

func TestPostsScrollGrowth(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.SeedPosts(testutil.ListPosts, "p", 130)
	b := reg.MustGet(Posts)
	ctx := context.Background()

	_, err := b.Refresh(ctx)
	require.NoError(t, err)
	rows, empty := b.Rows()
	assert.False(t, empty)
	assert.Len(t, rows, paging.DefaultScrollBatch)
	assert.Equal(t, "130", b.Total())

	for i := 0; i < 20; i++ {
		_, err := b.Bottom(ctx)
		require.NoError(t, err)
	}
	rows, _ = b.Rows()
	assert.Len(t, rows, 130)
	assert.Equal(t, paging.GrowthExhausted, b.Growth())
}

func TestPostsPageMode(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.SeedPosts(testutil.ListPosts, "p", 130)
	b := reg.MustGet(Posts)

	b.Reset(paging.Context{Mode: paging.ModePage, Page: 3})
	out, err := b.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Padded)

	rows, _ := b.Rows()
	require.Len(t, rows, 15)
	assert.Equal(t, "p030", rows[0].ID)
	assert.Equal(t, "p044", rows[14].ID)
	assert.Equal(t, 9, b.Navigator().MaxPage())
}

func TestApprovePostRefreshes(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.SeedPosts(testutil.ListPosts, "p", 5)
	b := reg.MustGet(Posts)
	ctx := context.Background()

	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	_, err = b.Mutate(ctx, paging.ActionApprove, "p002")
	require.NoError(t, err)

	assert.Equal(t, []string{"POST /api/post/approve"}, fake.Mutations())
	assert.Equal(t, 4, b.Len())
	_, ok := b.Row("p002")
	assert.False(t, ok)
}

func TestMutationFailureKeepsState(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.SeedPosts(testutil.ListPosts, "p", 5)
	b := reg.MustGet(Posts)
	ctx := context.Background()

	_, err := b.Refresh(ctx)
	require.NoError(t, err)
	fake.Fail("/api/post/reject", http.StatusBadRequest, "Bad request")

	_, err = b.Mutate(ctx, paging.ActionReject, "p001")
	require.Error(t, err)
	var apiErr *client.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 5, b.Len())

	_, err = b.Mutate(ctx, paging.ActionReject, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrepareMutationDefersRefresh(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.SeedPosts(testutil.ListPosts, "p", 3)
	b := reg.MustGet(Posts)
	ctx := context.Background()

	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	job, err := b.PrepareMutation(paging.ActionReject, "p000")
	require.NoError(t, err)
	require.NoError(t, job(ctx))
	rows, _ := b.Rows()
	assert.Len(t, rows, 3, "the job leaves local state to the owner")

	req := b.BeginRefresh()
	out := b.Fetch(ctx, req)()
	assert.True(t, out.Applied())
	rows, _ = b.Rows()
	assert.Equal(t, []string{"p001", "p002"}, rowIDs(rows))
}

func TestMutationInterleavedWithReconcile(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.SeedPosts(testutil.ListPosts, "p", 40)
	b := reg.MustGet(Posts)
	b.Reset(paging.Context{Mode: paging.ModePage, Page: 1})
	ctx := context.Background()

	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	// a reconcile reads the listing before the rejection commits
	b.GoTo(3)
	req, ok := b.Begin()
	require.True(t, ok)
	late := b.Fetch(ctx, req)

	job, err := b.PrepareMutation(paging.ActionReject, "p031")
	require.NoError(t, err)
	require.NoError(t, job(ctx))

	refresh := b.BeginRefresh()
	out := b.Fetch(ctx, refresh)()
	require.True(t, out.Applied())

	out = late()
	assert.True(t, out.Stale)
	_, found := b.Row("p031")
	assert.False(t, found)
	assert.Equal(t, 39, b.Len())

	rows, _ := b.Rows()
	require.NotEmpty(t, rows)
	assert.Equal(t, "p032", rows[1].ID)
}

func TestRefreshBypassesResponseCache(t *testing.T) {
	fake := testutil.NewBoard(t)
	reg := NewRegistry(client.New(fake.URL, client.WithCacheTTL(time.Minute)), testutil.Logger())
	fake.SeedPosts(testutil.ListPosts, "p", 2)
	b := reg.MustGet(Posts)
	ctx := context.Background()

	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	fake.Seed(testutil.ListPosts, testutil.Item{"postID": "late", "title": "late arrival"})
	_, err = b.Refresh(ctx)
	require.NoError(t, err)

	rows, _ := b.Rows()
	assert.Equal(t, []string{"p000", "p001", "late"}, rowIDs(rows))
}

func TestPostEditsLoadOriginals(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.AddPost(testutil.Item{"postID": "7", "title": "Cats", "tags": []string{"cat", "cute"}})
	fake.Seed(testutil.ListPostEdits, testutil.Item{
		"postID": "e1", "originalID": "7", "updater": "amy", "reason": "tags",
		"tags": []string{"cat", "kitten"},
	})
	b := reg.MustGet(PostEdits)
	ctx := context.Background()

	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	row, ok := b.Row("e1")
	require.True(t, ok)
	assert.Equal(t, "Edit of Cats", row.Title)
	assert.Contains(t, row.Detail, "**Added tags:** `kitten`")
	assert.Contains(t, row.Detail, "**Removed tags:** `cute`")

	_, err = b.Mutate(ctx, paging.ActionApprove, "e1")
	require.NoError(t, err)
	var approve testutil.Call
	for _, c := range fake.Calls() {
		if c.Path == "/api/post/approve" {
			approve = c
		}
	}
	assert.Equal(t, "tags", approve.Body["reason"])
}

func TestNotesDecision(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.Seed(testutil.ListNotes, testutil.Item{
		"postID": "n1", "originalID": "9", "order": 2, "updater": "kim",
		"notes": []testutil.Item{{"transcript": "hola", "translation": "hello", "characterTag": "x"}},
	})
	b := reg.MustGet(Notes)
	ctx := context.Background()
	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	rows, _ := b.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "n1:2", rows[0].ID)

	_, err = b.Mutate(ctx, paging.ActionReject, "n1:2")
	require.NoError(t, err)

	var call testutil.Call
	for _, c := range fake.Calls() {
		if c.Path == "/api/note/reject" {
			call = c
		}
	}
	assert.Equal(t, "kim", call.Body["username"])
	assert.Equal(t, float64(2), call.Body["order"])
	data := call.Body["data"].([]any)
	assert.Equal(t, "x", data[0].(map[string]any)["characterTag"])
	assert.Equal(t, 0, fake.Len(testutil.ListNotes))
}

func TestReportAcceptSequence(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		asset     testutil.Item
		wantCalls []string
		wantQuery map[string]string
		wantUser  string
		wantID    string
	}{
		{
			name:      "comment",
			kind:      "comment",
			asset:     testutil.Item{"username": "bob", "postID": "55"},
			wantCalls: []string{"DELETE /api/comment/delete", "POST /api/comment/report/fulfill"},
			wantQuery: map[string]string{"commentID": "x1"},
			wantUser:  "bob",
			wantID:    "55",
		},
		{
			name:      "thread",
			kind:      "thread",
			asset:     testutil.Item{"creator": "sue", "threadID": "x1"},
			wantCalls: []string{"DELETE /api/thread/delete", "POST /api/thread/report/fulfill"},
			wantQuery: map[string]string{"threadID": "x1"},
			wantUser:  "sue",
			wantID:    "x1",
		},
		{
			name:      "reply",
			kind:      "reply",
			asset:     testutil.Item{"creator": "tom", "threadID": "t8"},
			wantCalls: []string{"DELETE /api/reply/delete", "POST /api/reply/report/fulfill"},
			wantQuery: map[string]string{"replyID": "x1", "threadID": "t8"},
			wantUser:  "tom",
			wantID:    "t8",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, fake := newTestRegistry(t)
			fake.AddAsset(tt.kind, "x1", tt.asset)
			fake.Seed(testutil.ListReports, testutil.Item{
				"reportID": "r1", "type": tt.kind, "id": "x1", "reporter": "ann", "reason": "spam",
			})
			b := reg.MustGet(Reports)
			ctx := context.Background()
			_, err := b.Refresh(ctx)
			require.NoError(t, err)

			_, err = b.Mutate(ctx, paging.ActionApprove, tt.kind+":r1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, fake.Mutations())

			var del, fulfill testutil.Call
			for _, c := range fake.Calls() {
				switch c.Method {
				case http.MethodDelete:
					del = c
				case http.MethodPost:
					fulfill = c
				}
			}
			for k, v := range tt.wantQuery {
				assert.Equal(t, []string{v}, del.Query[k], k)
			}
			assert.Equal(t, tt.wantUser, fulfill.Body["username"])
			assert.Equal(t, tt.wantID, fulfill.Body["id"])
			assert.Equal(t, "ann", fulfill.Body["reporter"])
			assert.Equal(t, true, fulfill.Body["accepted"])
			assert.Equal(t, 0, b.Len())
		})
	}
}

func TestReportRejectOnlyFulfills(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.AddAsset("comment", "c1", testutil.Item{"username": "bob", "postID": "3"})
	fake.Seed(testutil.ListReports, testutil.Item{"reportID": "r1", "type": "comment", "id": "c1", "reporter": "ann"})
	b := reg.MustGet(Reports)
	ctx := context.Background()
	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	_, err = b.Mutate(ctx, paging.ActionReject, "comment:r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /api/comment/report/fulfill"}, fake.Mutations())
}

func TestGroupEditAccept(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.Seed(testutil.ListGroupEdits, testutil.Item{
		"username": "amy", "slug": "cats", "name": "Cats!", "description": "all cats", "reason": "typo",
	})
	b := reg.MustGet(GroupEdits)
	ctx := context.Background()
	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	_, err = b.Mutate(ctx, paging.ActionApprove, "amy:cats")
	require.NoError(t, err)
	assert.Equal(t, []string{"PUT /api/group/edit", "POST /api/group/edit/request/fulfill"}, fake.Mutations())

	var put testutil.Call
	for _, c := range fake.Calls() {
		if c.Method == http.MethodPut {
			put = c
		}
	}
	assert.Equal(t, "Cats!", put.Body["name"])
	assert.Equal(t, "all cats", put.Body["description"])
}

func TestGroupEditsShowCurrentGroup(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.AddGroup(testutil.Item{"slug": "cats", "name": "Cats", "description": "all cats"})
	fake.Seed(testutil.ListGroupEdits,
		testutil.Item{"username": "amy", "slug": "cats", "name": "Cats!", "description": "all cats", "reason": "typo"},
		testutil.Item{"username": "bob", "slug": "gone", "name": "Dogs", "description": "dogs only"},
	)
	b := reg.MustGet(GroupEdits)
	ctx := context.Background()
	_, err := b.Refresh(ctx)
	require.NoError(t, err)

	var lookup testutil.Call
	for _, c := range fake.Calls() {
		if c.Path == "/api/groups/list" {
			lookup = c
		}
	}
	assert.Equal(t, []string{"cats", "gone"}, lookup.Query["groups"])

	tests := []struct {
		id      string
		title   string
		want    []string
		notWant []string
	}{
		{
			id:      "amy:cats",
			title:   "Edit group Cats",
			want:    []string{"**Name:** ~~Cats~~ → Cats!", "**Reason:** typo"},
			notWant: []string{"Description", "not found"},
		},
		{
			id:    "bob:gone",
			title: "Edit group gone",
			want:  []string{"_current group not found_", "**Name:** Dogs", "dogs only"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			row, ok := b.Row(tt.id)
			require.True(t, ok)
			assert.Equal(t, tt.title, row.Title)
			for _, s := range tt.want {
				assert.Contains(t, row.Detail, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, row.Detail, s)
			}
		})
	}
}

func TestGroupDeletionSequences(t *testing.T) {
	tests := []struct {
		name string
		item testutil.Item
		id   string
		want []string
	}{
		{
			name: "whole group",
			item: testutil.Item{"username": "amy", "group": "cats"},
			id:   "amy:cats",
			want: []string{"DELETE /api/group/delete", "POST /api/group/delete/request/fulfill"},
		},
		{
			name: "post from group",
			item: testutil.Item{"username": "amy", "group": "cats", "post": testutil.Item{"postID": "42"}},
			id:   "amy:cats:42",
			want: []string{"DELETE /api/group/post/delete", "POST /api/group/post/delete/request/fulfill"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, fake := newTestRegistry(t)
			fake.Seed(testutil.ListGroupDeletions, tt.item)
			b := reg.MustGet(GroupDeletions)
			ctx := context.Background()
			_, err := b.Refresh(ctx)
			require.NoError(t, err)

			_, err = b.Mutate(ctx, paging.ActionApprove, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fake.Mutations())
			assert.Equal(t, 0, fake.Len(testutil.ListGroupDeletions))
		})
	}
}

func TestFetchErrorExhausts(t *testing.T) {
	reg, fake := newTestRegistry(t)
	fake.Fail(testutil.ListGroupEdits, http.StatusForbidden, "Unauthorized")
	b := reg.MustGet(GroupEdits)

	b.Reset(paging.Context{Mode: paging.ModePage, Page: 1})
	out, err := b.Reconcile(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
	assert.True(t, out.Exhausted)
	assert.True(t, b.Cursor().Exhausted)
	_, empty := b.Rows()
	assert.True(t, empty)
}

func TestTagDiff(t *testing.T) {
	added, removed := tagDiff([]string{"a", "b", "c"}, []string{"c", "d", "a", "e"})
	assert.Equal(t, []string{"d", "e"}, added)
	assert.Equal(t, []string{"b"}, removed)
}

func TestRowsForManyQueues(t *testing.T) {
	reg, fake := newTestRegistry(t)
	for i := 0; i < 3; i++ {
		fake.Seed(testutil.ListGroupEdits, testutil.Item{"username": fmt.Sprintf("u%d", i), "slug": "g"})
	}
	b := reg.MustGet(GroupEdits)
	_, err := b.Refresh(context.Background())
	require.NoError(t, err)
	rows, _ := b.Rows()
	assert.Equal(t, []string{"u0:g", "u1:g", "u2:g"}, rowIDs(rows))
	assert.Equal(t, "3", b.Total())
}
