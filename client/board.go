package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const (
	pathPostsUnverified  = "/api/post/list/unverified"
	pathPostEdits        = "/api/post-edits/list/unverified"
	pathPosts            = "/api/posts"
	pathNotesUnverified  = "/api/note/list/unverified"
	pathReports          = "/api/search/reports"
	pathGroupEditList    = "/api/group/edit/request/list"
	pathGroupDeleteList  = "/api/group/delete/request/list"
	pathGroupsList       = "/api/groups/list"
	pathPostApprove      = "/api/post/approve"
	pathPostReject       = "/api/post/reject"
	pathGroupEdit        = "/api/group/edit"
	pathGroupEditFulfill = "/api/group/edit/request/fulfill"
	pathGroupDelete      = "/api/group/delete"
	pathGroupDelFulfill  = "/api/group/delete/request/fulfill"
	pathGroupPostDelete  = "/api/group/post/delete"
	pathGroupPostFulfill = "/api/group/post/delete/request/fulfill"
)

func offsetParams(offset int) url.Values {
	return url.Values{"offset": {strconv.Itoa(offset)}}
}

func (c *Client) UnverifiedPosts(ctx context.Context, offset int) ([]UnverifiedPost, error) {
	var posts []UnverifiedPost
	if err := c.getJSON(ctx, pathPostsUnverified, offsetParams(offset), &posts); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// ApprovePost approves an upload or a post edit. reason is only sent for edits.
func (c *Client) ApprovePost(ctx context.Context, postID, reason string) error {
	body := struct {
		PostID string `json:"postID"`
		Reason string `json:"reason,omitempty"`
	}{postID, reason}
	if err := c.postJSON(ctx, pathPostApprove, body, nil); err != nil {
		return fmt.Errorf("approve post: %w", err)
	}
	c.ClearCacheKey(pathPostsUnverified)
	c.ClearCacheKey(pathPostEdits)
	return nil
}

func (c *Client) RejectPost(ctx context.Context, postID string) error {
	body := struct {
		PostID string `json:"postID"`
	}{postID}
	if err := c.postJSON(ctx, pathPostReject, body, nil); err != nil {
		return fmt.Errorf("reject post: %w", err)
	}
	c.ClearCacheKey(pathPostsUnverified)
	c.ClearCacheKey(pathPostEdits)
	return nil
}

func (c *Client) UnverifiedPostEdits(ctx context.Context, offset int) ([]UnverifiedPost, error) {
	var posts []UnverifiedPost
	if err := c.getJSON(ctx, pathPostEdits, offsetParams(offset), &posts); err != nil {
		return nil, fmt.Errorf("list post edits: %w", err)
	}
	return posts, nil
}

// Posts loads published posts by id. Unknown ids are omitted by the board.
func (c *Client) Posts(ctx context.Context, ids []string) ([]Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []Post
	if err := c.getJSON(ctx, pathPosts, url.Values{"postIDs": ids}, &posts); err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	return posts, nil
}

func (c *Client) UnverifiedNotes(ctx context.Context, offset int) ([]NoteEdit, error) {
	var notes []NoteEdit
	if err := c.getJSON(ctx, pathNotesUnverified, offsetParams(offset), &notes); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (c *Client) ApproveNote(ctx context.Context, d NoteDecision) error {
	if err := c.postJSON(ctx, "/api/note/approve", d, nil); err != nil {
		return fmt.Errorf("approve note: %w", err)
	}
	c.ClearCacheKey(pathNotesUnverified)
	return nil
}

func (c *Client) RejectNote(ctx context.Context, d NoteDecision) error {
	if err := c.postJSON(ctx, "/api/note/reject", d, nil); err != nil {
		return fmt.Errorf("reject note: %w", err)
	}
	c.ClearCacheKey(pathNotesUnverified)
	return nil
}

func (c *Client) Reports(ctx context.Context, offset int) ([]Report, error) {
	var reports []Report
	if err := c.getJSON(ctx, pathReports, offsetParams(offset), &reports); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// ReportAsset loads the comment, thread or reply a report points at.
func (c *Client) ReportAsset(ctx context.Context, kind ReportKind, id string) (*ReportAsset, error) {
	var path, param string
	switch kind {
	case ReportComment:
		path, param = "/api/comment", "commentID"
	case ReportThread:
		path, param = "/api/thread", "threadID"
	case ReportReply:
		path, param = "/api/reply", "replyID"
	default:
		return nil, fmt.Errorf("report asset: unknown kind %q", kind)
	}
	var asset ReportAsset
	if err := c.getJSON(ctx, path, url.Values{param: {id}}, &asset); err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	return &asset, nil
}

// DeleteReportedAsset removes the reported content. Replies are addressed
// through their thread.
func (c *Client) DeleteReportedAsset(ctx context.Context, kind ReportKind, id, threadID string) error {
	var path string
	params := url.Values{}
	switch kind {
	case ReportComment:
		path = "/api/comment/delete"
		params.Set("commentID", id)
	case ReportThread:
		path = "/api/thread/delete"
		params.Set("threadID", id)
	case ReportReply:
		path = "/api/reply/delete"
		params.Set("threadID", threadID)
		params.Set("replyID", id)
	default:
		return fmt.Errorf("delete asset: unknown kind %q", kind)
	}
	if err := c.deleteJSON(ctx, path, params); err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return nil
}

func (c *Client) FulfillReport(ctx context.Context, kind ReportKind, f ReportFulfill) error {
	path := "/api/" + string(kind) + "/report/fulfill"
	if err := c.postJSON(ctx, path, f, nil); err != nil {
		return fmt.Errorf("fulfill %s report: %w", kind, err)
	}
	c.ClearCacheKey(pathReports)
	return nil
}

func (c *Client) GroupEditRequests(ctx context.Context, offset int) ([]GroupEditRequest, error) {
	var reqs []GroupEditRequest
	if err := c.getJSON(ctx, pathGroupEditList, offsetParams(offset), &reqs); err != nil {
		return nil, fmt.Errorf("list group edits: %w", err)
	}
	return reqs, nil
}

// Groups loads groups by slug or name. Unknown keys are omitted by the board.
func (c *Client) Groups(ctx context.Context, keys []string) ([]Group, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var groups []Group
	if err := c.getJSON(ctx, pathGroupsList, url.Values{"groups": keys}, &groups); err != nil {
		return nil, fmt.Errorf("get groups: %w", err)
	}
	return groups, nil
}

func (c *Client) EditGroup(ctx context.Context, e GroupEdit) error {
	if err := c.putJSON(ctx, pathGroupEdit, e, nil); err != nil {
		return fmt.Errorf("edit group: %w", err)
	}
	return nil
}

func (c *Client) FulfillGroupEdit(ctx context.Context, username, slug string, accepted bool) error {
	f := GroupFulfill{Username: username, Slug: slug, Accepted: accepted}
	if err := c.postJSON(ctx, pathGroupEditFulfill, f, nil); err != nil {
		return fmt.Errorf("fulfill group edit: %w", err)
	}
	c.ClearCacheKey(pathGroupEditList)
	if accepted {
		c.ClearCacheKey(pathGroupsList)
	}
	return nil
}

func (c *Client) GroupDeleteRequests(ctx context.Context, offset int) ([]GroupDeleteRequest, error) {
	var reqs []GroupDeleteRequest
	if err := c.getJSON(ctx, pathGroupDeleteList, offsetParams(offset), &reqs); err != nil {
		return nil, fmt.Errorf("list group deletions: %w", err)
	}
	return reqs, nil
}

func (c *Client) DeleteGroup(ctx context.Context, slug string) error {
	if err := c.deleteJSON(ctx, pathGroupDelete, url.Values{"slug": {slug}}); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// DeleteGroupPost removes one post from a group without deleting the group.
func (c *Client) DeleteGroupPost(ctx context.Context, group, postID, username string) error {
	params := url.Values{"name": {group}, "postID": {postID}, "username": {username}}
	if err := c.deleteJSON(ctx, pathGroupPostDelete, params); err != nil {
		return fmt.Errorf("delete group post: %w", err)
	}
	return nil
}

// FulfillGroupDelete closes a deletion request. A non-empty postID closes a
// post-removal request instead of a whole-group one.
func (c *Client) FulfillGroupDelete(ctx context.Context, username, slug, postID string, accepted bool) error {
	path := pathGroupDelFulfill
	if postID != "" {
		path = pathGroupPostFulfill
	}
	f := GroupFulfill{Username: username, Slug: slug, PostID: postID, Accepted: accepted}
	if err := c.postJSON(ctx, path, f, nil); err != nil {
		return fmt.Errorf("fulfill group deletion: %w", err)
	}
	c.ClearCacheKey(pathGroupDeleteList)
	return nil
}

// maxDownload caps attachment reads for previews.
const maxDownload = 32 << 20

// Download fetches a raw attachment such as /unverified/image/1-0-a.png.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return data, nil
}

// ImagePath is the board path of an attachment. Unverified attachments live
// under /unverified.
func ImagePath(img Image, unverified bool) string {
	if img.Filename == "" {
		return ""
	}
	kind := img.Type
	if kind == "" {
		kind = "image"
	}
	p := "/" + kind + "/" + img.PostID + "-" + strconv.Itoa(img.Order) + "-" + url.PathEscape(img.Filename)
	if unverified {
		p = "/unverified" + p
	}
	return p
}
