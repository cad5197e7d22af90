package board

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/miosa/modq/client"
	"github.com/miosa/modq/paging"
)

// API is the slice of the board client the queues call.
type API interface {
	UnverifiedPosts(ctx context.Context, offset int) ([]client.UnverifiedPost, error)
	UnverifiedPostEdits(ctx context.Context, offset int) ([]client.UnverifiedPost, error)
	Posts(ctx context.Context, ids []string) ([]client.Post, error)
	ApprovePost(ctx context.Context, postID, reason string) error
	RejectPost(ctx context.Context, postID string) error

	UnverifiedNotes(ctx context.Context, offset int) ([]client.NoteEdit, error)
	ApproveNote(ctx context.Context, d client.NoteDecision) error
	RejectNote(ctx context.Context, d client.NoteDecision) error

	Reports(ctx context.Context, offset int) ([]client.Report, error)
	ReportAsset(ctx context.Context, kind client.ReportKind, id string) (*client.ReportAsset, error)
	DeleteReportedAsset(ctx context.Context, kind client.ReportKind, id, threadID string) error
	FulfillReport(ctx context.Context, kind client.ReportKind, f client.ReportFulfill) error

	GroupEditRequests(ctx context.Context, offset int) ([]client.GroupEditRequest, error)
	Groups(ctx context.Context, keys []string) ([]client.Group, error)
	EditGroup(ctx context.Context, e client.GroupEdit) error
	FulfillGroupEdit(ctx context.Context, username, slug string, accepted bool) error

	GroupDeleteRequests(ctx context.Context, offset int) ([]client.GroupDeleteRequest, error)
	DeleteGroup(ctx context.Context, slug string) error
	DeleteGroupPost(ctx context.Context, group, postID, username string) error
	FulfillGroupDelete(ctx context.Context, username, slug, postID string, accepted bool) error
}

func unsupported(action paging.Action) error {
	return fmt.Errorf("unsupported action %q", action)
}

// posts

func postsDef(api API) queueDef[client.UnverifiedPost] {
	return queueDef[client.UnverifiedPost]{
		queue:    Posts,
		fetch:    api.UnverifiedPosts,
		identity: func(p client.UnverifiedPost) string { return p.PostID },
		count:    func(p client.UnverifiedPost) string { return p.PostCount.String() },
		mutate: func(ctx context.Context, action paging.Action, p client.UnverifiedPost) error {
			switch action {
			case paging.ActionApprove:
				return api.ApprovePost(ctx, p.PostID, "")
			case paging.ActionReject:
				return api.RejectPost(ctx, p.PostID)
			}
			return unsupported(action)
		},
		summary: postRow,
	}
}

func postTitle(p client.UnverifiedPost) string {
	if p.Title != "" {
		return p.Title
	}
	return "Post " + p.PostID
}

func firstImage(images []client.Image, unverified bool) string {
	if len(images) == 0 {
		return ""
	}
	return client.ImagePath(images[0], unverified)
}

func postRow(p client.UnverifiedPost) Row {
	sub := []string{"by " + orDash(p.Uploader)}
	if n := len(p.Images); n > 0 {
		sub = append(sub, plural(n, "file"))
	}
	if p.Rating != "" {
		sub = append(sub, p.Rating)
	}
	if p.Appealed {
		sub = append(sub, "appealed")
	}

	var md strings.Builder
	fmt.Fprintf(&md, "## %s\n\n", postTitle(p))
	field(&md, "Uploader", p.Uploader)
	field(&md, "Artist", p.Artist)
	field(&md, "Type", p.Type)
	field(&md, "Rating", p.Rating)
	field(&md, "Style", p.Style)
	field(&md, "Source", p.Source)
	field(&md, "Parent", p.ParentID)
	if p.Duplicates {
		field(&md, "Duplicates", "possible duplicates found")
	}
	if p.NewTags > 0 {
		field(&md, "New tags", strconv.Itoa(p.NewTags))
	}
	if p.Appealed {
		field(&md, "Appealed by", p.Appealer)
		field(&md, "Appeal reason", p.AppealReason)
	}
	tags(&md, p.Tags)
	images(&md, p.Images)

	return Row{
		ID:       p.PostID,
		Title:    postTitle(p),
		Subtitle: strings.Join(sub, " · "),
		Detail:   md.String(),
		Media:    firstImage(p.Images, true),
	}
}

// post edits

func postEditsDef(api API) queueDef[client.PostEdit] {
	return queueDef[client.PostEdit]{
		queue: PostEdits,
		fetch: func(ctx context.Context, offset int) ([]client.PostEdit, error) {
			return loadPostEdits(ctx, api, offset)
		},
		identity: func(p client.PostEdit) string { return p.PostID },
		count:    func(p client.PostEdit) string { return p.PostCount.String() },
		mutate: func(ctx context.Context, action paging.Action, p client.PostEdit) error {
			switch action {
			case paging.ActionApprove:
				return api.ApprovePost(ctx, p.PostID, p.Reason)
			case paging.ActionReject:
				return api.RejectPost(ctx, p.PostID)
			}
			return unsupported(action)
		},
		summary: postEditRow,
	}
}

// loadPostEdits fetches a page of edits and the posts they would replace.
func loadPostEdits(ctx context.Context, api API, offset int) ([]client.PostEdit, error) {
	edits, err := api.UnverifiedPostEdits(ctx, offset)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edits))
	seen := make(map[string]bool)
	for _, e := range edits {
		if e.OriginalID != "" && !seen[e.OriginalID] {
			seen[e.OriginalID] = true
			ids = append(ids, e.OriginalID)
		}
	}
	originals, err := api.Posts(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*client.Post, len(originals))
	for i := range originals {
		byID[originals[i].PostID] = &originals[i]
	}
	out := make([]client.PostEdit, len(edits))
	for i, e := range edits {
		out[i] = client.PostEdit{UnverifiedPost: e, Original: byID[e.OriginalID]}
	}
	return out, nil
}

func postEditRow(p client.PostEdit) Row {
	title := "Edit of post " + p.OriginalID
	if p.Original != nil && p.Original.Title != "" {
		title = "Edit of " + p.Original.Title
	}
	sub := []string{"by " + orDash(p.Updater)}
	if p.Reason != "" {
		sub = append(sub, p.Reason)
	}

	var md strings.Builder
	fmt.Fprintf(&md, "## %s\n\n", title)
	field(&md, "Updater", p.Updater)
	field(&md, "Reason", p.Reason)
	if o := p.Original; o != nil {
		changed(&md, "Title", o.Title, p.Title)
		changed(&md, "Artist", o.Artist, p.Artist)
		changed(&md, "Type", o.Type, p.Type)
		changed(&md, "Rating", o.Rating, p.Rating)
		changed(&md, "Style", o.Style, p.Style)
		changed(&md, "Source", o.Source, p.Source)
		added, removed := tagDiff(o.Tags, p.Tags)
		if len(added) > 0 {
			field(&md, "Added tags", code(added))
		}
		if len(removed) > 0 {
			field(&md, "Removed tags", code(removed))
		}
		if len(o.Images) != len(p.Images) {
			field(&md, "Files", fmt.Sprintf("%d → %d", len(o.Images), len(p.Images)))
		}
	} else {
		md.WriteString("\n_original post not found_\n")
		tags(&md, p.Tags)
	}

	return Row{
		ID:       p.PostID,
		Title:    title,
		Subtitle: strings.Join(sub, " · "),
		Detail:   md.String(),
		Media:    firstImage(p.Images, true),
	}
}

// tagDiff returns the tags only in next and the tags only in prev, sorted.
func tagDiff(prev, next []string) (added, removed []string) {
	in := func(list []string) map[string]bool {
		m := make(map[string]bool, len(list))
		for _, t := range list {
			m[t] = true
		}
		return m
	}
	p, n := in(prev), in(next)
	for t := range n {
		if !p[t] {
			added = append(added, t)
		}
	}
	for t := range p {
		if !n[t] {
			removed = append(removed, t)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// notes

func notesDef(api API) queueDef[client.NoteEdit] {
	return queueDef[client.NoteEdit]{
		queue:    Notes,
		fetch:    api.UnverifiedNotes,
		identity: noteID,
		count:    func(n client.NoteEdit) string { return n.NoteCount.String() },
		mutate: func(ctx context.Context, action paging.Action, n client.NoteEdit) error {
			d := client.NoteDecision{
				PostID:     n.PostID,
				OriginalID: n.OriginalID,
				Order:      n.Order,
				Data:       n.Notes,
				Username:   n.Updater,
			}
			switch action {
			case paging.ActionApprove:
				return api.ApproveNote(ctx, d)
			case paging.ActionReject:
				return api.RejectNote(ctx, d)
			}
			return unsupported(action)
		},
		summary: noteRow,
	}
}

func noteID(n client.NoteEdit) string {
	return n.PostID + ":" + strconv.Itoa(n.Order)
}

func noteRow(n client.NoteEdit) Row {
	title := fmt.Sprintf("Notes on post %s, page %d", n.OriginalID, n.Order+1)
	sub := []string{"by " + orDash(n.Updater), plural(len(n.Notes), "note")}

	var md strings.Builder
	fmt.Fprintf(&md, "## %s\n\n", title)
	field(&md, "Updater", n.Updater)
	field(&md, "Reason", n.Reason)
	md.WriteString("\n")
	for i, note := range n.Notes {
		text := note.Transcript
		if note.Translation != "" {
			text += " → " + note.Translation
		}
		fmt.Fprintf(&md, "%d. %s\n", i+1, orDash(text))
	}

	var media string
	if n.Post != nil {
		for _, img := range n.Post.Images {
			if img.Order == n.Order {
				media = client.ImagePath(img, false)
				break
			}
		}
		if media == "" {
			media = firstImage(n.Post.Images, false)
		}
	}
	return Row{
		ID:       noteID(n),
		Title:    title,
		Subtitle: strings.Join(sub, " · "),
		Detail:   md.String(),
		Media:    media,
	}
}

// reports

func reportsDef(api API) queueDef[client.Report] {
	return queueDef[client.Report]{
		queue:    Reports,
		fetch:    api.Reports,
		identity: reportID,
		count:    func(r client.Report) string { return r.ReportCount.String() },
		mutate: func(ctx context.Context, action paging.Action, r client.Report) error {
			return mutateReport(ctx, api, action, r)
		},
		summary: reportRow,
	}
}

func reportID(r client.Report) string {
	return string(r.Type) + ":" + r.ReportID
}

// mutateReport loads the reported asset for its author, deletes it on
// approve, and closes the report.
func mutateReport(ctx context.Context, api API, action paging.Action, r client.Report) error {
	if action != paging.ActionApprove && action != paging.ActionReject {
		return unsupported(action)
	}
	asset, err := api.ReportAsset(ctx, r.Type, r.ID)
	if err != nil {
		if !client.IsNotFound(err) {
			return err
		}
		asset = &client.ReportAsset{}
	}
	accepted := action == paging.ActionApprove
	if accepted {
		if r.Type == client.ReportReply && asset.ThreadID == "" {
			return fmt.Errorf("reply %s: thread unknown", r.ID)
		}
		if err := api.DeleteReportedAsset(ctx, r.Type, r.ID, asset.ThreadID); err != nil {
			return err
		}
	}
	return api.FulfillReport(ctx, r.Type, client.ReportFulfill{
		ReportID: r.ReportID,
		Reporter: r.Reporter,
		Username: asset.Author(),
		ID:       asset.Target(r.Type),
		Accepted: accepted,
	})
}

func reportRow(r client.Report) Row {
	title := fmt.Sprintf("Reported %s %s", r.Type, r.ID)
	var md strings.Builder
	fmt.Fprintf(&md, "## %s\n\n", title)
	field(&md, "Reporter", r.Reporter)
	field(&md, "Date", r.ReportDate)
	field(&md, "Reason", r.Reason)
	return Row{
		ID:       reportID(r),
		Title:    title,
		Subtitle: "by " + orDash(r.Reporter) + " · " + orDash(r.Reason),
		Detail:   md.String(),
	}
}

// group edits

func groupEditsDef(api API) queueDef[client.GroupChange] {
	return queueDef[client.GroupChange]{
		queue: GroupEdits,
		fetch: func(ctx context.Context, offset int) ([]client.GroupChange, error) {
			return loadGroupEdits(ctx, api, offset)
		},
		identity: func(g client.GroupChange) string { return g.Username + ":" + g.Slug },
		count:    func(g client.GroupChange) string { return g.RequestCount.String() },
		mutate: func(ctx context.Context, action paging.Action, g client.GroupChange) error {
			switch action {
			case paging.ActionApprove:
				err := api.EditGroup(ctx, client.GroupEdit{
					Username:    g.Username,
					Slug:        g.Slug,
					Name:        g.Name,
					Description: g.Description,
					Reason:      g.Reason,
				})
				if err != nil {
					return err
				}
				return api.FulfillGroupEdit(ctx, g.Username, g.Slug, true)
			case paging.ActionReject:
				return api.FulfillGroupEdit(ctx, g.Username, g.Slug, false)
			}
			return unsupported(action)
		},
		summary: groupEditRow,
	}
}

// loadGroupEdits fetches a page of edit requests and the groups they would
// change. Groups are looked up by slug since a request may rename one.
func loadGroupEdits(ctx context.Context, api API, offset int) ([]client.GroupChange, error) {
	reqs, err := api.GroupEditRequests(ctx, offset)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(reqs))
	seen := make(map[string]bool)
	for _, r := range reqs {
		if r.Slug != "" && !seen[r.Slug] {
			seen[r.Slug] = true
			slugs = append(slugs, r.Slug)
		}
	}
	groups, err := api.Groups(ctx, slugs)
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]*client.Group, len(groups))
	for i := range groups {
		bySlug[groups[i].Slug] = &groups[i]
	}
	out := make([]client.GroupChange, len(reqs))
	for i, r := range reqs {
		out[i] = client.GroupChange{GroupEditRequest: r, Current: bySlug[r.Slug]}
	}
	return out, nil
}

func groupEditRow(g client.GroupChange) Row {
	title := "Edit group " + g.Slug
	if g.Current != nil && g.Current.Name != "" {
		title = "Edit group " + g.Current.Name
	}
	sub := []string{"by " + orDash(g.Username)}
	if g.Reason != "" {
		sub = append(sub, g.Reason)
	}

	var md strings.Builder
	fmt.Fprintf(&md, "## %s\n\n", title)
	field(&md, "Requester", g.Username)
	field(&md, "Reason", g.Reason)
	if c := g.Current; c != nil {
		changed(&md, "Name", c.Name, g.Name)
		changed(&md, "Description", c.Description, g.Description)
		if c.Name == g.Name && c.Description == g.Description {
			md.WriteString("\n_no changes_\n")
		}
	} else {
		md.WriteString("\n_current group not found_\n")
		field(&md, "Name", g.Name)
		if g.Description != "" {
			md.WriteString("\n" + g.Description + "\n")
		}
	}
	return Row{
		ID:       g.Username + ":" + g.Slug,
		Title:    title,
		Subtitle: strings.Join(sub, " · "),
		Detail:   md.String(),
	}
}

// group deletions

func groupDeletionsDef(api API) queueDef[client.GroupDeleteRequest] {
	return queueDef[client.GroupDeleteRequest]{
		queue:    GroupDeletions,
		fetch:    api.GroupDeleteRequests,
		identity: groupDeleteID,
		count:    func(g client.GroupDeleteRequest) string { return g.RequestCount.String() },
		mutate: func(ctx context.Context, action paging.Action, g client.GroupDeleteRequest) error {
			var postID string
			if g.Post != nil {
				postID = g.Post.PostID
			}
			switch action {
			case paging.ActionApprove:
				var err error
				if postID != "" {
					err = api.DeleteGroupPost(ctx, g.Group, postID, g.Username)
				} else {
					err = api.DeleteGroup(ctx, g.Group)
				}
				if err != nil {
					return err
				}
				return api.FulfillGroupDelete(ctx, g.Username, g.Group, postID, true)
			case paging.ActionReject:
				return api.FulfillGroupDelete(ctx, g.Username, g.Group, postID, false)
			}
			return unsupported(action)
		},
		summary: groupDeleteRow,
	}
}

func groupDeleteID(g client.GroupDeleteRequest) string {
	id := g.Username + ":" + g.Group
	if g.Post != nil && g.Post.PostID != "" {
		id += ":" + g.Post.PostID
	}
	return id
}

func groupDeleteRow(g client.GroupDeleteRequest) Row {
	title := "Delete group " + g.Group
	var media string
	if g.Post != nil {
		title = fmt.Sprintf("Remove post %s from group %s", g.Post.PostID, g.Group)
		media = firstImage(g.Post.Images, false)
	}
	var md strings.Builder
	fmt.Fprintf(&md, "## %s\n\n", title)
	field(&md, "Requester", g.Username)
	field(&md, "Reason", g.Reason)
	return Row{
		ID:       groupDeleteID(g),
		Title:    title,
		Subtitle: "by " + orDash(g.Username),
		Detail:   md.String(),
		Media:    media,
	}
}

// markdown helpers

func field(md *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(md, "- **%s:** %s\n", name, value)
}

func changed(md *strings.Builder, name, before, after string) {
	if before == after {
		return
	}
	fmt.Fprintf(md, "- **%s:** ~~%s~~ → %s\n", name, orDash(before), orDash(after))
}

func tags(md *strings.Builder, list []string) {
	if len(list) == 0 {
		return
	}
	field(md, "Tags", code(list))
}

func images(md *strings.Builder, list []client.Image) {
	for _, img := range list {
		fmt.Fprintf(md, "- `%s` %dx%d\n", img.Filename, img.Width, img.Height)
	}
}

func code(list []string) string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = "`" + s + "`"
	}
	return strings.Join(out, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
