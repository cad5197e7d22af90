package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/miosa/modq/board"
	"github.com/miosa/modq/paging"
	"github.com/miosa/modq/store"
	"github.com/miosa/modq/style"
)

func newModerateCmd(e *env, action paging.Action) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <queue> <id>", action),
		Short: fmt.Sprintf("%s one queue item", titleCase(string(action))),
		Long: fmt.Sprintf(`Pages through the queue until the item is found, sends the %s and
records the result in the local action journal.

Ids are the ones "modq list" prints:
  posts, post-edits   <postID>
  notes               <postID>:<order>
  reports             <type>:<reportID>
  group-edits         <username>:<slug>
  group-deletions     <username>:<group>[:<postID>]`, action),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runModerate(cmd.Context(), cmd.OutOrStdout(), action, args[0], args[1])
		},
	}
}

func (e *env) runModerate(ctx context.Context, w io.Writer, action paging.Action, queue, id string) error {
	b, err := e.binding(e.registry(e.client()), queue)
	if err != nil {
		return err
	}
	st, err := e.store()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := locate(ctx, b, id); err != nil {
		return err
	}

	_, mutateErr := b.Mutate(ctx, action, id)
	rec := store.Action{Queue: string(b.Queue()), ItemID: id, Action: string(action), OK: mutateErr == nil}
	if mutateErr != nil {
		rec.Error = mutateErr.Error()
	}
	if _, err := st.RecordAction(ctx, rec); err != nil {
		e.logger.Warn("record action", zap.String("id", id), zap.Error(err))
	}
	if mutateErr != nil {
		return mutateErr
	}

	_, err = fmt.Fprintf(w, "%s %s %s\n", style.Bold.Render(pastTense(action)), b.Queue(), id)
	return err
}

// locate reconciles batch after batch until id is in the collection.
func locate(ctx context.Context, b board.Binding, id string) error {
	b.Reset(paging.Context{Mode: paging.ModeScroll, Page: 1})
	if _, err := b.Refresh(ctx); err != nil {
		return err
	}
	for {
		if _, ok := b.Row(id); ok {
			return nil
		}
		if b.Cursor().Exhausted {
			return fmt.Errorf("%s %q: %w", b.Queue(), id, board.ErrNotFound)
		}
		if _, err := b.Reconcile(ctx); err != nil {
			return err
		}
	}
}

func pastTense(a paging.Action) string {
	switch a {
	case paging.ActionApprove:
		return "approved"
	case paging.ActionReject:
		return "rejected"
	}
	return string(a)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
