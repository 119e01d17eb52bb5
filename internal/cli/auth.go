package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Log in with email and password. The password can also come from
the PROJECTCTL_PASSWORD environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PROJECTCTL_PASSWORD")
			}
			c, _ := a.client(false)
			res, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			a.session.Server = a.serverURL
			a.session.Token = res.Token
			a.session.Email = email
			if err := a.session.Save(a.sessionPath); err != nil {
				return err
			}
			a.out.Result(res.User, func() {
				a.out.Success("logged in as %s (%s)", res.User.Email, res.User.Role)
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.session.Token = ""
			if err := a.session.Save(a.sessionPath); err != nil {
				return err
			}
			a.out.Success("logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			u, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			a.out.Result(u, func() {
				a.out.KeyValue("Email", u.Email)
				a.out.KeyValue("Role", u.Role)
				a.out.KeyValue("Tenant", u.Tenant)
				a.out.KeyValue("Department", u.Department)
			})
			return nil
		},
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := a.client(false)
			health, err := c.Health(cmd.Context())
			if health != nil {
				a.out.Result(health, func() {
					a.out.KeyValue("Status", health.Status)
					for k, v := range health.Components {
						a.out.KeyValue(k, v)
					}
				})
			}
			return err
		},
	}
}
