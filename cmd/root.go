// Package cmd wires the cobra command tree: authentication, the chat TUI, and
// the calendar subcommands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/calendarik-app/calendarik/internal/api"
	"github.com/calendarik-app/calendarik/internal/auth"
	"github.com/calendarik-app/calendarik/internal/config"
	"github.com/calendarik-app/calendarik/internal/logger"
)

var (
	cfgFile    string
	apiURLFlag string
	plainFlag  bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	rootCmd := &cobra.Command{
		Use:   "calendarik",
		Short: "Calendar and AI assistant in your terminal",
		Long:  "calendarik is a terminal client for the Calendarik backend: calendar management and an AI chat assistant.",
		// Running calendarik with no subcommand starts the chat.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/calendarik/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "override backend base URL")
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false, "plain terminal output instead of the TUI")

	// Subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newPersonalityCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newCalendarCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// displayVersion returns a formatted version string for the TUI welcome line,
// e.g. "v0.2.0 (abc1234)".
func displayVersion() string {
	v := "v" + appVersion
	if appCommit != "" && appCommit != "none" {
		v += " (" + appCommit + ")"
	}
	return v
}

// app bundles the pieces every command needs.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	client  *api.Client
	session *auth.Manager
}

// newApp loads config, builds the API client, and constructs the session
// manager. It performs no network I/O.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if apiURLFlag != "" {
		cfg.APIURL = apiURLFlag
	}

	log := logger.New(cfg.LogLevel)

	client := api.New(cfg.APIURL,
		api.WithTimeout(cfg.RequestTimeout()),
		api.WithLogger(log),
	)

	sessionPath, err := auth.DefaultSessionPath()
	if err != nil {
		return nil, fmt.Errorf("locate session file: %w", err)
	}

	session := auth.NewManager(client, auth.NewFileStore(sessionPath),
		auth.WithLogger(log),
	)

	return &app{cfg: cfg, log: log, client: client, session: session}, nil
}

// restore loads the stored session, turning a missing one into a usable hint.
func (a *app) restore(ctx context.Context) error {
	if err := a.session.Restore(ctx); err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			return fmt.Errorf("not logged in; run: calendarik login")
		}
		return err
	}
	return nil
}
