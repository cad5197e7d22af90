package client

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Count is a queue total as reported by the board. The board sends it as a
// number or a string; anything non-numeric means the total is unknown.
type Count string

// UnmarshalJSON accepts numbers, strings and null.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Count(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Count(n.String())
	return nil
}

// MarshalJSON writes numeric counts as numbers.
func (c Count) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(string(c), 64); err == nil {
		return []byte(c), nil
	}
	return json.Marshal(string(c))
}

func (c Count) String() string { return string(c) }

// Image is one file attached to a post.
type Image struct {
	ImageID          string `json:"imageID,omitempty"`
	PostID           string `json:"postID,omitempty"`
	Filename         string `json:"filename"`
	UpscaledFilename string `json:"upscaledFilename,omitempty"`
	Type             string `json:"type,omitempty"`
	Order            int    `json:"order"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Size             int64  `json:"size"`
}

// Post is a published post.
type Post struct {
	PostID   string   `json:"postID"`
	Title    string   `json:"title,omitempty"`
	Uploader string   `json:"uploader,omitempty"`
	Updater  string   `json:"updater,omitempty"`
	Artist   string   `json:"artist,omitempty"`
	Type     string   `json:"type,omitempty"`
	Rating   string   `json:"rating,omitempty"`
	Style    string   `json:"style,omitempty"`
	Source   string   `json:"source,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Images   []Image  `json:"images,omitempty"`
}

// UnverifiedPost is an upload or edit waiting for moderation.
type UnverifiedPost struct {
	PostID       string   `json:"postID"`
	OriginalID   string   `json:"originalID,omitempty"`
	Title        string   `json:"title,omitempty"`
	Uploader     string   `json:"uploader,omitempty"`
	Updater      string   `json:"updater,omitempty"`
	Artist       string   `json:"artist,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	NewTags      int      `json:"newTags,omitempty"`
	Source       string   `json:"source,omitempty"`
	Duplicates   bool     `json:"duplicates,omitempty"`
	Images       []Image  `json:"images,omitempty"`
	HasUpscaled  bool     `json:"hasUpscaled,omitempty"`
	Type         string   `json:"type,omitempty"`
	Rating       string   `json:"rating,omitempty"`
	Style        string   `json:"style,omitempty"`
	ParentID     string   `json:"parentID,omitempty"`
	Appealed     bool     `json:"appealed,omitempty"`
	Appealer     string   `json:"appealer,omitempty"`
	AppealReason string   `json:"appealReason,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	PostCount    Count    `json:"postCount,omitempty"`
}

// PostEdit is an unverified edit with the post it would replace.
type PostEdit struct {
	UnverifiedPost
	Original *Post `json:"-"`
}

// Note is one translation box. The raw form is kept so approvals send the
// note back exactly as received.
type Note struct {
	Transcript  string  `json:"transcript,omitempty"`
	Translation string  `json:"translation,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON keeps the raw bytes alongside the decoded fields.
func (n *Note) UnmarshalJSON(data []byte) error {
	type plain Note
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = Note(p)
	n.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the bytes the note was decoded from, if any.
func (n Note) MarshalJSON() ([]byte, error) {
	if len(n.raw) > 0 {
		return n.raw, nil
	}
	type plain Note
	return json.Marshal(plain(n))
}

// NoteEdit is a group of unverified notes for one image of a post.
type NoteEdit struct {
	NoteID     string `json:"noteID,omitempty"`
	PostID     string `json:"postID"`
	OriginalID string `json:"originalID"`
	Updater    string `json:"updater,omitempty"`
	Order      int    `json:"order"`
	Reason     string `json:"reason,omitempty"`
	Notes      []Note `json:"notes,omitempty"`
	NoteCount  Count  `json:"noteCount,omitempty"`
	Post       *Post  `json:"post,omitempty"`
}

// NoteDecision is the body of POST /api/note/{approve,reject}.
type NoteDecision struct {
	PostID     string `json:"postID"`
	OriginalID string `json:"originalID"`
	Order      int    `json:"order"`
	Data       []Note `json:"data"`
	Username   string `json:"username"`
}

// ReportKind is the type of reported asset.
type ReportKind string

const (
	ReportComment ReportKind = "comment"
	ReportThread  ReportKind = "thread"
	ReportReply   ReportKind = "reply"
)

// Report is a user report waiting for moderation.
type Report struct {
	ReportID    string     `json:"reportID"`
	Type        ReportKind `json:"type"`
	ID          string     `json:"id"`
	Reporter    string     `json:"reporter"`
	ReportDate  string     `json:"reportDate,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	ReportCount Count      `json:"reportCount,omitempty"`
}

// ReportAsset is the reported comment, thread or reply.
type ReportAsset struct {
	Username string `json:"username,omitempty"`
	Creator  string `json:"creator,omitempty"`
	PostID   string `json:"postID,omitempty"`
	ThreadID string `json:"threadID,omitempty"`
	Comment  string `json:"comment,omitempty"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Author is the user who wrote the asset. Comments carry username, threads
// and replies carry creator.
func (a ReportAsset) Author() string {
	if a.Username != "" {
		return a.Username
	}
	return a.Creator
}

// Target is the id a fulfilled report points back at: the post for a
// comment, the thread otherwise.
func (a ReportAsset) Target(kind ReportKind) string {
	if kind == ReportComment {
		return a.PostID
	}
	return a.ThreadID
}

// Text is the reported content.
func (a ReportAsset) Text(kind ReportKind) string {
	switch kind {
	case ReportComment:
		return a.Comment
	case ReportThread:
		return a.Title
	}
	return a.Content
}

// ReportFulfill is the body of POST /api/{kind}/report/fulfill.
type ReportFulfill struct {
	ReportID string `json:"reportID"`
	Reporter string `json:"reporter"`
	Username string `json:"username"`
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
}

// GroupEditRequest asks to change a group's name or description.
type GroupEditRequest struct {
	Username     string `json:"username"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Reason       string `json:"reason,omitempty"`
	RequestCount Count  `json:"requestCount,omitempty"`
}

// Group is the published state of a group.
type Group struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Creator     string `json:"creator,omitempty"`
}

// GroupChange is an edit request with the group it would change. Current is
// nil when the board no longer knows the group.
type GroupChange struct {
	GroupEditRequest
	Current *Group `json:"-"`
}

// GroupEdit is the body of PUT /api/group/edit.
type GroupEdit struct {
	Username    string `json:"username"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// GroupDeleteRequest asks to delete a group, or one post from it.
type GroupDeleteRequest struct {
	Username     string `json:"username"`
	Group        string `json:"group"`
	Post         *Post  `json:"post,omitempty"`
	Reason       string `json:"reason,omitempty"`
	RequestCount Count  `json:"requestCount,omitempty"`
}

// GroupFulfill is the body of the group request fulfill endpoints.
type GroupFulfill struct {
	Username string `json:"username"`
	Slug     string `json:"slug"`
	PostID   string `json:"postID,omitempty"`
	Accepted bool   `json:"accepted"`
}

// ErrorResponse for API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
