package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/miosa/modq/style"
)

func newHistoryCmd(e *env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:         "history",
		Short:       "Print recent approve and reject actions",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{offline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runHistory(cmd.Context(), cmd.OutOrStdout(), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of actions to show")
	return cmd
}

func (e *env) runHistory(ctx context.Context, w io.Writer, limit int) error {
	st, err := e.store()
	if err != nil {
		return err
	}
	defer st.Close()

	actions, err := st.ListActions(ctx, limit)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		_, err := fmt.Fprintln(w, style.EmptyRow.Render("no actions recorded"))
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(style.Faint).
		Headers("WHEN", "QUEUE", "ITEM", "ACTION", "RESULT")
	for _, a := range actions {
		result := "ok"
		if !a.OK {
			result = "failed: " + a.Error
		}
		t.Row(a.CreatedAt.Local().Format(time.DateTime), a.Queue, a.ItemID, a.Action, result)
	}
	_, err = fmt.Fprintln(w, t.String())
	return err
}
