// Package cmd is the modq command line: the interactive TUI plus scriptable
// list, approve, reject, counts and history subcommands.
package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/miosa/modq/app"
	"github.com/miosa/modq/board"
	"github.com/miosa/modq/client"
	"github.com/miosa/modq/config"
	"github.com/miosa/modq/logging"
	"github.com/miosa/modq/metrics"
	"github.com/miosa/modq/paging"
	"github.com/miosa/modq/store"
	"github.com/miosa/modq/style"
)

// offline marks commands that never contact the board.
const offline = "offline"

// env is the state shared by every command of one invocation.
type env struct {
	v       *viper.Viper
	cfgFile string
	profile string
	verbose bool
	noColor bool
	queue   string

	cfg    config.Config
	logger *zap.Logger
}

// NewRootCmd builds the command tree. Running it without a subcommand starts
// the TUI.
func NewRootCmd(version string) *cobra.Command {
	e := &env{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:     "modq",
		Short:   "Browse and moderate board queues from the terminal",
		Version: version,
		Long: `modq mirrors the moderation queues of a board (posts, post edits,
notes, reports, group edits and group deletions) and lets you approve or
reject items in either infinite-scroll or numbered-page mode.

Run without arguments to start the interactive interface.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd == cmd.Root(), cmd.Annotations[offline] == "true")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runTUI(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&e.cfgFile, "config", "", "config file (default <profile>/config.yaml)")
	flags.String("url", "", "board base URL (or MODQ_URL)")
	flags.String("token", "", "bearer token (or MODQ_TOKEN)")
	flags.StringVar(&e.profile, "profile", "", "named profile for state isolation (~/.modq/profiles/<name>)")
	flags.BoolVarP(&e.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&e.noColor, "no-color", false, "disable ANSI colors")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	_ = e.v.BindPFlag("url", flags.Lookup("url"))
	_ = e.v.BindPFlag("token", flags.Lookup("token"))
	_ = e.v.BindPFlag("metrics_addr", flags.Lookup("metrics-addr"))

	rootCmd.Flags().StringVarP(&e.queue, "queue", "q", "", "queue to open first")
	rootCmd.Flags().String("mode", "", "starting mode: scroll or page")
	_ = e.v.BindPFlag("default_mode", rootCmd.Flags().Lookup("mode"))

	rootCmd.AddCommand(newListCmd(e))
	rootCmd.AddCommand(newModerateCmd(e, paging.ActionApprove))
	rootCmd.AddCommand(newModerateCmd(e, paging.ActionReject))
	rootCmd.AddCommand(newCountsCmd(e))
	rootCmd.AddCommand(newHistoryCmd(e))
	rootCmd.AddCommand(newInitCmd(e))

	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	if err := NewRootCmd(version).Execute(); err != nil {
		return 1
	}
	return 0
}

// profileDir returns ~/.modq, or ~/.modq/profiles/<name> for a named profile.
func profileDir(profile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	if profile == "" {
		return filepath.Join(home, ".modq"), nil
	}
	return filepath.Join(home, ".modq", "profiles", profile), nil
}

// setup resolves config and logging. The TUI owns stdout and stderr, so
// interactive runs log to <profile>/modq.log.
func (e *env) setup(interactive, local bool) error {
	dir, err := profileDir(e.profile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("profile dir: %w", err)
	}

	config.LoadDotEnv()
	cfg, err := config.New(e.v, dir, e.cfgFile)
	if err != nil {
		return err
	}
	if !local {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	e.cfg = cfg

	opts := logging.Options{Level: "warn"}
	if interactive {
		opts = logging.Options{Level: "info", File: filepath.Join(dir, "modq.log")}
	}
	if e.verbose {
		opts.Level = "debug"
	}
	e.logger, err = logging.New(opts)
	if err != nil {
		return err
	}

	if e.noColor {
		lipgloss.SetColorProfile(0)
	}
	if !style.SetTheme(cfg.Theme) {
		e.logger.Warn("unknown theme", zap.String("theme", cfg.Theme))
	}

	if addr := cfg.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.logger.Error("metrics server", zap.String("addr", addr), zap.Error(err))
			}
		}()
	}
	return nil
}

func (e *env) client() *client.Client {
	c := client.New(e.cfg.BaseURL,
		client.WithCacheTTL(e.cfg.CacheTTL),
		client.WithRateLimit(e.cfg.RateLimit, e.cfg.RateBurst),
		client.WithHTTPClient(&http.Client{Timeout: e.cfg.Timeout}),
		client.WithCSRFToken(e.cfg.CSRFToken),
		client.WithLogger(e.logger.Named("client")),
	)
	if e.cfg.Token != "" {
		c.SetToken(e.cfg.Token)
	}
	return c
}

func (e *env) registry(c *client.Client) *board.Registry {
	return board.NewRegistry(c, e.logger.Named("board"), paging.WithConfig(e.cfg.Paging()))
}

func (e *env) store() (*store.SQLiteStore, error) {
	return store.New(e.cfg.DBPath, e.logger.Named("store"))
}

func (e *env) binding(reg *board.Registry, name string) (board.Binding, error) {
	q, err := board.ParseQueue(name)
	if err != nil {
		return nil, err
	}
	return reg.Get(q)
}

func (e *env) runTUI(cmd *cobra.Command) error {
	var start board.Queue
	if e.queue != "" {
		q, err := board.ParseQueue(e.queue)
		if err != nil {
			return err
		}
		start = q
	}

	st, err := e.store()
	if err != nil {
		return err
	}
	defer st.Close()

	c := e.client()
	m := app.New(app.Options{
		Context:  cmd.Context(),
		Registry: e.registry(c),
		Media:    c,
		Journal:  st,
		Logger:   e.logger,
		Mode:     e.cfg.Mode(),
		Queue:    start,
		Timeout:  e.cfg.Timeout,
		Mobile:   e.cfg.Mobile,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("modq: %w", err)
	}
	return nil
}
