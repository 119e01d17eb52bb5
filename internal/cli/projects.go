package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tchtranslate/portal/pkg/client"
)

func (a *app) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"p"},
		Short:   "List and manage projects",
	}
	cmd.AddCommand(
		a.projectsListCmd(),
		a.projectsGetCmd(),
		a.projectsCreateCmd(),
		a.projectsStatusCmd(),
		a.projectsAssignCmd(),
		a.projectsDeleteCmd(),
		a.projectsStatusOptionsCmd(),
	)
	return cmd
}

func (a *app) projectsListCmd() *cobra.Command {
	var (
		filter   client.Filter
		pageSize string
		allPages bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long: `List projects for a status category (Active, Billing, Quoted, All or a
status name) in a year or month. --request searches one request number
and ignores the other filters.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := client.ParsePageSize(pageSize)
			if err != nil {
				return err
			}
			if filter.Year == 0 {
				filter.Year = time.Now().Year()
			}
			c, err := a.client(true)
			if err != nil {
				return err
			}

			view := client.NewViewState(filter, size)
			if err := c.Load(cmd.Context(), view); err != nil {
				return err
			}
			for allPages && view.Projects().HasMore() {
				if err := c.Load(cmd.Context(), view); err != nil {
					return err
				}
			}

			list := view.Projects()
			a.out.Result(list, func() {
				printProjects(a.out, list.Projects)
				a.out.Info("%d of %d projects", len(list.Projects), list.Count)
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.StatusCategory, "status", "Active", "status category")
	cmd.Flags().IntVar(&filter.Year, "year", 0, "year (default current year)")
	cmd.Flags().IntVar(&filter.Month, "month", 0, "month 1-12, 0 for the whole year")
	cmd.Flags().StringVar(&filter.RequestNumber, "request", "", "request number to search")
	cmd.Flags().StringVar(&filter.Tenant, "tenant", "", "tenant (admins only)")
	cmd.Flags().StringVar(&pageSize, "page-size", "20", "page size or All")
	cmd.Flags().BoolVar(&allPages, "all-pages", false, "keep loading until every page is fetched")
	return cmd
}

func printProjects(out *Output, projects []client.Project) {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			p.ID,
			p.ProjectCode,
			p.RequestNumber,
			p.Status,
			p.Tenant,
			p.SourceLanguage + " > " + p.TargetLanguage,
			p.Created.Format("2006-01-02 15:04"),
		})
	}
	out.Table([]string{"ID", "CODE", "REQUEST", "STATUS", "TENANT", "LANGUAGES", "CREATED"}, rows)
}

func (a *app) projectsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			p, err := c.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.out.Result(p, func() {
				a.out.KeyValue("Code", p.ProjectCode)
				a.out.KeyValue("Request", p.RequestNumber)
				a.out.KeyValue("Status", p.Status)
				a.out.KeyValue("Tenant", p.Tenant+" / "+p.Department)
				a.out.KeyValue("Languages", p.SourceLanguage+" > "+p.TargetLanguage)
				a.out.KeyValue("Created", p.Created.Format(time.RFC3339))
				a.out.KeyValue("Time line", p.TimeLine.Format(time.RFC3339))
				a.out.KeyValue("Word count", strconv.Itoa(p.WordCount))
				a.out.KeyValue("Billed", strconv.FormatFloat(p.Billed, 'f', 2, 64))
			})
			return nil
		},
	}
}

func (a *app) projectsCreateCmd() *cobra.Command {
	var (
		req      client.CreateProjectRequest
		timeLine string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeLine != "" {
				t, err := time.Parse("2006-01-02", timeLine)
				if err != nil {
					return fmt.Errorf("--timeline: %w", err)
				}
				req.TimeLine = &t
			}
			c, err := a.client(true)
			if err != nil {
				return err
			}
			p, err := c.CreateProject(cmd.Context(), &req)
			if err != nil {
				return err
			}
			a.out.Result(p, func() {
				a.out.Success("created %s (%s)", p.ProjectCode, p.ID)
			})
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.RequestNumber, "request", "", "client request number")
	f.StringVar(&req.SourceLanguage, "source", "", "source language")
	f.StringVar(&req.TargetLanguage, "target", "", "target language")
	f.StringVar(&req.Tenant, "tenant", "", "tenant (admins only)")
	f.StringVar(&req.Department, "department", "", "department (admins only)")
	f.StringVar(&timeLine, "timeline", "", "requested delivery date YYYY-MM-DD")
	f.BoolVar(&req.IsTranslation, "translation", true, "translation service")
	f.BoolVar(&req.IsEditing, "editing", false, "editing service")
	f.BoolVar(&req.IsCertificate, "certificate", false, "certified translation")
	f.BoolVar(&req.IsUrgent, "urgent", false, "urgent request")
	f.StringVar(&req.AdditionalInfo, "info", "", "additional information")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("target")
	return cmd
}

func (a *app) projectsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <status> <id>...",
		Short: "Set the status of one or more projects",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			status, ids := args[0], args[1:]
			if len(ids) == 1 {
				p, err := c.UpdateStatus(cmd.Context(), ids[0], status)
				if err != nil {
					return err
				}
				a.out.Result(p, func() { a.out.Success("%s is now %s", p.ProjectCode, p.Status) })
				return nil
			}
			res, err := c.BulkUpdateStatus(cmd.Context(), ids, status)
			if err != nil {
				return err
			}
			a.out.Result(res, func() { a.out.Success("%d projects set to %s", res.Updated, res.Status) })
			return nil
		},
	}
}

func (a *app) projectsAssignCmd() *cobra.Command {
	var clearTranslator bool
	cmd := &cobra.Command{
		Use:   "assign <id> [translator-uid]",
		Short: "Assign or clear the translator of a project",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var translator *string
			switch {
			case len(args) == 2:
				translator = &args[1]
			case !clearTranslator:
				return fmt.Errorf("give a translator uid or --clear")
			}
			c, err := a.client(true)
			if err != nil {
				return err
			}
			p, err := c.AssignTranslator(cmd.Context(), args[0], translator)
			if err != nil {
				return err
			}
			a.out.Result(p, func() { a.out.Success("%s is %s", p.ProjectCode, p.Status) })
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearTranslator, "clear", false, "remove the translator")
	return cmd
}

func (a *app) projectsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project that is still Received",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			p, err := c.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := c.DeleteProject(cmd.Context(), p); err != nil {
				return fmt.Errorf("%s: %w", p.ProjectCode, err)
			}
			a.out.Result(map[string]string{"id": p.ID}, func() { a.out.Success("deleted %s", p.ProjectCode) })
			return nil
		},
	}
}

func (a *app) projectsStatusOptionsCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "status-options",
		Short: "List the statuses you may set",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			statuses, err := c.StatusOptions(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			a.out.Result(statuses, func() {
				for _, s := range statuses {
					a.out.Info("%s", s)
				}
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant the statuses apply to")
	return cmd
}
