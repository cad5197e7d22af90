package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/miosa/modq/config"
)

func newInitCmd(e *env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the resolved configuration to the profile config file",
		Long: `Resolves flags, MODQ_* environment variables and defaults, then saves
the result as <profile>/config.yaml so later runs need no flags.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{offline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runInit(cmd.Context(), cmd.OutOrStdout(), force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func (e *env) runInit(_ context.Context, w io.Writer, force bool) error {
	dir, err := profileDir(e.profile)
	if err != nil {
		return err
	}
	path := config.Path(dir)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}

	if err := config.Save(dir, e.cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	_, err = fmt.Fprintf(w, "wrote %s\n", path)
	return err
}
