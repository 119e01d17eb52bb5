// Package cli implements projectctl, a command line client of the portal.
package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/tchtranslate/portal/pkg/client"
)

var errNotLoggedIn = errors.New("not logged in, run 'projectctl login' first")

// app carries the state shared by every command of one invocation.
type app struct {
	sessionPath string
	serverURL   string
	jsonOutput  bool

	session *Session
	out     *Output
}

// NewRootCmd builds the projectctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "projectctl",
		Short:         "Command line client for the translation project portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = NewOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.jsonOutput)
			if a.sessionPath == "" {
				a.sessionPath = DefaultSessionPath()
			}
			s, err := LoadSession(a.sessionPath)
			if err != nil {
				return err
			}
			a.session = s

			// Server URL priority: flag > env > session > default
			if a.serverURL == "" {
				a.serverURL = os.Getenv("PROJECTCTL_SERVER")
			}
			if a.serverURL == "" {
				a.serverURL = s.Server
			}
			if a.serverURL == "" {
				a.serverURL = client.DefaultServer
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.sessionPath, "session", "", "session file (default $HOME/.tch/projectctl.json)")
	root.PersistentFlags().StringVar(&a.serverURL, "server", "", "portal server URL")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "output as JSON")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.healthCmd(),
		a.projectsCmd(),
		a.tenantsCmd(),
		a.usersCmd(),
		a.countersCmd(),
	)
	return root
}

// Execute runs projectctl and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		root.PrintErrln("error:", err)
		return 1
	}
	return 0
}

// client returns a client for the configured server. Commands that need a
// session fail early when there is none.
func (a *app) client(needAuth bool) (*client.Client, error) {
	if needAuth && a.session.Token == "" {
		return nil, errNotLoggedIn
	}
	return client.New(
		client.WithServer(a.serverURL),
		client.WithToken(a.session.Token),
		client.WithUnauthorizedHandler(a.dropSession),
	), nil
}

// dropSession forgets a token the server no longer accepts.
func (a *app) dropSession() {
	a.session.Token = ""
	if err := a.session.Save(a.sessionPath); err != nil {
		a.out.Error("could not clear session: %v", err)
	}
}
