package cli

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tchtranslate/portal/pkg/client"
)

func (a *app) tenantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Show tenants",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the tenants you can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			tenants, err := c.GetTenants(cmd.Context())
			if err != nil {
				return err
			}
			a.out.Result(tenants, func() {
				rows := make([][]string, 0, len(tenants))
				for _, t := range tenants {
					rows = append(rows, []string{t.Slug, t.Name, t.Translators, strconv.Itoa(len(t.Departments))})
				}
				a.out.Table([]string{"SLUG", "NAME", "TRANSLATORS", "DEPARTMENTS"}, rows)
			})
			return nil
		},
	})
	return cmd
}

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage portal accounts (admin)",
	}

	var save client.SaveUserRequest
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			u, err := c.SaveUser(cmd.Context(), &save)
			if err != nil {
				return err
			}
			a.out.Result(u, func() { a.out.Success("saved %s (%s)", u.Email, u.UID) })
			return nil
		},
	}
	sf := saveCmd.Flags()
	sf.StringVar(&save.UID, "uid", "", "uid of an existing user")
	sf.StringVar(&save.Email, "email", "", "email")
	sf.StringVar(&save.Name, "name", "", "display name")
	sf.StringVar(&save.Password, "password", "", "password (required for new users)")
	sf.StringVar(&save.Role, "role", "", "admin, client, translator or unauthorized")
	sf.StringVar(&save.Tenant, "tenant", "", "tenant slug")
	sf.StringVar(&save.Department, "department", "", "department")
	saveCmd.MarkFlagRequired("email")

	var claims client.AssignClaimsRequest
	claimsCmd := &cobra.Command{
		Use:   "claims <uid>",
		Short: "Set role, tenant and department; existing tokens are revoked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims.UID = args[0]
			c, err := a.client(true)
			if err != nil {
				return err
			}
			u, err := c.AssignUserClaims(cmd.Context(), &claims)
			if err != nil {
				return err
			}
			a.out.Result(u, func() { a.out.Success("%s is %s in %s", u.Email, u.Role, u.Tenant) })
			return nil
		},
	}
	claimsCmd.Flags().StringVar(&claims.Role, "role", "", "role")
	claimsCmd.Flags().StringVar(&claims.Tenant, "tenant", "", "tenant slug")
	claimsCmd.Flags().StringVar(&claims.Department, "department", "", "department")
	claimsCmd.MarkFlagRequired("role")

	removeCmd := &cobra.Command{
		Use:   "remove <uid>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			if err := c.RemoveUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.out.Success("removed %s", args[0])
			return nil
		},
	}

	var role, department string
	translatorsCmd := &cobra.Command{
		Use:   "translators <tenant>",
		Short: "List users of a role in a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			users, err := c.GetTranslatorUsers(cmd.Context(), args[0], role, department)
			if err != nil {
				return err
			}
			a.out.Result(users, func() {
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					rows = append(rows, []string{u.UID, u.Name, u.Email, u.Department})
				}
				a.out.Table([]string{"UID", "NAME", "EMAIL", "DEPARTMENT"}, rows)
			})
			return nil
		},
	}
	translatorsCmd.Flags().StringVar(&role, "role", "translator", "role to list")
	translatorsCmd.Flags().StringVar(&department, "department", "", "department, empty for all")

	cmd.AddCommand(saveCmd, claimsCmd, removeCmd, translatorsCmd)
	return cmd
}

func (a *app) countersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counters",
		Short: "Advisory counters (admin)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile [key]",
		Short: "Recount the rows behind a counter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := "projects"
			if len(args) == 1 {
				key = args[0]
			}
			c, err := a.client(true)
			if err != nil {
				return err
			}
			ctr, err := c.ReconcileCounter(cmd.Context(), key)
			if err != nil {
				return err
			}
			a.out.Result(ctr, func() { a.out.Success("%s = %d", ctr.Key, ctr.Value) })
			return nil
		},
	})
	return cmd
}
