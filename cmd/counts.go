package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/miosa/modq/board"
	"github.com/miosa/modq/style"
)

func newCountsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Print the pending total of every queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runCounts(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (e *env) runCounts(ctx context.Context, w io.Writer) error {
	reg := e.registry(e.client())
	queues := board.Queues()
	totals := make([]string, len(queues))

	// each binding is touched by one goroutine only
	g, ctx := errgroup.WithContext(ctx)
	for i, q := range queues {
		b := reg.MustGet(q)
		g.Go(func() error {
			if _, err := b.Refresh(ctx); err != nil {
				return fmt.Errorf("%s: %w", q, err)
			}
			totals[i] = b.Total()
			if totals[i] == "" {
				totals[i] = "0"
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(style.Faint).
		Headers("QUEUE", "PENDING")
	for i, q := range queues {
		t.Row(q.Title(), totals[i])
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}
