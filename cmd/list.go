package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/miosa/modq/board"
	"github.com/miosa/modq/paging"
	"github.com/miosa/modq/style"
)

// maxFills bounds the page-mode fill loop; a page needs at most a refresh,
// one fetch for its start and one for its end.
const maxFills = 3

type listOptions struct {
	page   int
	scroll int
	match  string
	json   bool
}

func newListCmd(e *env) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list <queue>",
		Short: "Print one window of a queue",
		Long: `Synchronizes a queue the way the interface does and prints the rows
that would be visible.

  modq list posts                 first scroll window
  modq list posts --scroll 3      after three scroll steps
  modq list reports --page 4      page 4 in page mode
  modq list notes --match '*tag*' rows whose title matches a glob`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.page > 0 && cmd.Flags().Changed("scroll") {
				return errors.New("--page and --scroll are mutually exclusive")
			}
			return e.runList(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.page, "page", 0, "show this page in page mode")
	cmd.Flags().IntVar(&opts.scroll, "scroll", 0, "scroll steps to take after the first window")
	cmd.Flags().StringVar(&opts.match, "match", "", "only print rows whose title matches this glob")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON")
	return cmd
}

type listOutput struct {
	Queue   string      `json:"queue"`
	Mode    string      `json:"mode"`
	Page    int         `json:"page,omitempty"`
	MaxPage int         `json:"maxPage,omitempty"`
	Fetched int         `json:"fetched"`
	Total   string      `json:"total"`
	Rows    []board.Row `json:"rows"`
}

func (e *env) runList(ctx context.Context, w io.Writer, queue string, opts listOptions) error {
	var filter glob.Glob
	if opts.match != "" {
		g, err := glob.Compile(opts.match)
		if err != nil {
			return fmt.Errorf("--match: %w", err)
		}
		filter = g
	}

	b, err := e.binding(e.registry(e.client()), queue)
	if err != nil {
		return err
	}
	if opts.page > 0 {
		err = syncPage(ctx, b, opts.page)
	} else {
		err = syncScroll(ctx, b, opts.scroll)
	}
	if err != nil {
		return err
	}

	rows, _ := b.Rows()
	if filter != nil {
		kept := rows[:0]
		for _, r := range rows {
			if filter.Match(r.Title) {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	nav := b.Navigator()
	out := listOutput{
		Queue:   string(b.Queue()),
		Mode:    b.Context().Mode.String(),
		Fetched: b.Len(),
		Total:   b.Total(),
		Rows:    rows,
	}
	if out.Rows == nil {
		out.Rows = []board.Row{}
	}
	if b.Context().Mode == paging.ModePage {
		out.Page = nav.Page
		out.MaxPage = nav.MaxPage()
	}

	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printList(w, out, nav, e.cfg.Mobile)
}

// syncScroll mounts scroll mode with a refresh of offset 0, then takes steps
// bottom events.
func syncScroll(ctx context.Context, b board.Binding, steps int) error {
	b.Reset(paging.Context{Mode: paging.ModeScroll, Page: 1})
	if _, err := b.Refresh(ctx); err != nil {
		return err
	}
	for i := 0; i < steps; i++ {
		out, err := b.Bottom(ctx)
		if err != nil {
			return err
		}
		if out.Skipped && b.Growth() == paging.GrowthExhausted {
			break
		}
	}
	return nil
}

// syncPage refreshes to learn the total, lets the engine clamp the page, and
// fetches whatever the page is still missing.
func syncPage(ctx context.Context, b board.Binding, page int) error {
	b.Reset(paging.Context{Mode: paging.ModePage, Page: page})
	if _, err := b.Refresh(ctx); err != nil {
		return err
	}
	for i := 0; i < maxFills && b.NeedsFill(); i++ {
		b.Rearm()
		out, err := b.Reconcile(ctx)
		if err != nil {
			return err
		}
		if out.Skipped {
			break
		}
	}
	return nil
}

func printList(w io.Writer, out listOutput, nav paging.Navigator, mobile bool) error {
	if len(out.Rows) == 0 {
		_, err := fmt.Fprintln(w, style.EmptyRow.Render("no data"))
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(style.Faint).
		Headers("ID", "TITLE", "DETAILS")
	for _, r := range out.Rows {
		t.Row(r.ID, r.Title, r.Subtitle)
	}
	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}

	total := out.Total
	if total == "" {
		total = "?"
	}
	footer := fmt.Sprintf("%s · %s · %d/%s fetched", out.Queue, out.Mode, out.Fetched, total)
	if out.Mode == paging.ModePage.String() {
		footer = fmt.Sprintf("%s · page %d/%s · %s · %d/%s fetched",
			out.Queue, out.Page, maxLabel(out.MaxPage), pageButtons(nav, mobile), out.Fetched, total)
	}
	_, err := fmt.Fprintln(w, style.Faint.Render(footer))
	return err
}

func pageButtons(nav paging.Navigator, mobile bool) string {
	var s string
	for i, p := range nav.Buttons(mobile) {
		if i > 0 {
			s += " "
		}
		if p == nav.Page {
			s += fmt.Sprintf("[%d]", p)
		} else {
			s += fmt.Sprint(p)
		}
	}
	return s
}

func maxLabel(max int) string {
	if max == paging.UnknownMaxPage {
		return "?"
	}
	return fmt.Sprint(max)
}
