// Package cli implements the journal command line: account setup, bulk data
// commands, a monthly report and an interactive shell.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fxjournal/internal/server"
)

// UserEnv names the environment variable that supplies the default --user.
const UserEnv = "FXJOURNAL_USER"

// Connector opens the backend and returns the services built on it together with a
// function that releases it.
type Connector func() (server.Services, func() error, error)

// App carries the state shared by every command of one invocation.
type App struct {
	Connect Connector
	Now     func() time.Time
	// Stdin feeds the shell. Nil reads the terminal.
	Stdin io.ReadCloser

	userEmail string
	svc       *server.Services
	closeFn   func() error
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// services connects on first use.
func (a *App) services() (server.Services, error) {
	if a.svc != nil {
		return *a.svc, nil
	}
	svc, closeFn, err := a.Connect()
	if err != nil {
		return server.Services{}, fmt.Errorf("connect: %w", err)
	}
	a.svc = &svc
	a.closeFn = closeFn
	return svc, nil
}

// owner resolves --user to a user ID.
func (a *App) owner() (server.Services, string, error) {
	if a.userEmail == "" {
		return server.Services{}, "", errors.New("no user selected: pass --user or set " + UserEnv)
	}
	svc, err := a.services()
	if err != nil {
		return server.Services{}, "", err
	}
	user, err := svc.Users.GetUserByEmail(a.userEmail)
	if err != nil {
		return server.Services{}, "", fmt.Errorf("user %s: %w", a.userEmail, err)
	}
	return svc, user.ID, nil
}

// Close releases the backend. It is safe to call more than once.
func (a *App) Close() error {
	if a.closeFn == nil {
		return nil
	}
	err := a.closeFn()
	a.closeFn = nil
	a.svc = nil
	return err
}

// NewRootCmd builds the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "journal",
		Short: "Forex trade journal",
		Long: `journal records forex trades and reports their performance.

Subcommands:
  user add  - Create a journal user
  seed      - Add randomly generated demo trades
  import    - Import trades from a CSV file
  export    - Export trades as CSV
  stats     - Print the statistics of a month
  shell     - Browse and edit trades interactively

Examples:
  journal user add me@example.com --password s3cretpass
  journal -u me@example.com import trades.csv
  journal -u me@example.com stats --month 2026-03`,
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	root.PersistentFlags().StringVarP(&app.userEmail, "user", "u", os.Getenv(UserEnv), "email of the journal owner")

	root.AddCommand(
		newUserCmd(app),
		newSeedCmd(app),
		newImportCmd(app),
		newExportCmd(app),
		newStatsCmd(app),
		newShellCmd(app),
	)
	return root
}
