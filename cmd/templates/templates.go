// Package templates provides the templates command for visitprep
package templates

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/visitprep/internal/app"
)

// Command creates and returns the templates command
func Command(env *app.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage question templates",
	}

	cmd.AddCommand(listCommand(env), addCommand(env), deleteCommand(env))

	return cmd
}

func listCommand(env *app.Env) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List system and custom templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Run(cmd.Context(), func(a *app.App) error {
				all, err := a.Catalog.AllTemplates(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tNAME\tKIND\tQUESTIONS")
				for i := range all {
					kind := "custom"
					if all[i].IsSystem {
						kind = "system"
					}
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", all[i].ID, all[i].Name, kind, len(all[i].Questions))
					if verbose {
						for _, q := range all[i].Questions {
							_, _ = fmt.Fprintf(w, "\t  - %s\t\t\n", q)
						}
					}
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the questions of each template")

	return cmd
}

func addCommand(env *app.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME [QUESTION...]",
		Short: "Create a custom template",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Run(cmd.Context(), func(a *app.App) error {
				tmpl, err := a.Catalog.CreateCustomTemplate(cmd.Context(), args[0], args[1:])
				if err != nil {
					return fmt.Errorf("failed to create template: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created template %s (%s) with %d questions\n",
					tmpl.ID, tmpl.Name, len(tmpl.Questions))
				return nil
			})
		},
	}
}

func deleteCommand(env *app.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a custom template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Run(cmd.Context(), func(a *app.App) error {
				if err := a.Catalog.DeleteCustomTemplate(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to delete template: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted template %s\n", args[0])
				return nil
			})
		},
	}
}
