// Package nursery provides the nursery command for visitprep
package nursery

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/visitprep/internal/app"
	"github.com/tphakala/visitprep/internal/datastore/entities"
)

const dateLayout = "2006-01-02"

// Command creates and returns the nursery command
func Command(env *app.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nursery",
		Short: "Manage nurseries and their visits",
	}

	cmd.AddCommand(
		listCommand(env),
		createCommand(env),
		showCommand(env),
		renameCommand(env),
		deleteCommand(env),
	)

	return cmd
}

func listCommand(env *app.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List nurseries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Run(cmd.Context(), func(a *app.App) error {
				if err := a.Store.Load(cmd.Context()); err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tNAME\tVISITS\tQUESTIONS")
				for _, n := range a.Store.Nurseries() {
					questions := 0
					for i := range n.VisitSessions {
						questions += len(n.VisitSessions[i].Questions)
					}
					_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", n.ID, n.Name, len(n.VisitSessions), questions)
				}
				return w.Flush()
			})
		},
	}
}

func createCommand(env *app.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a nursery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Run(cmd.Context(), func(a *app.App) error {
				n, err := a.Store.CreateNursery(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to create nursery: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created nursery %s (%s)\n", n.ID, n.Name)
				return nil
			})
		},
	}
}

func showCommand(env *app.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a nursery with its visits and questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Run(cmd.Context(), func(a *app.App) error {
				if err := a.Store.Load(cmd.Context()); err != nil {
					return err
				}
				n, err := a.Store.Nursery(args[0])
				if err != nil {
					return err
				}
				printNursery(cmd.OutOrStdout(), &n)
				return nil
			})
		},
	}
}

func renameCommand(env *app.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a nursery",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Run(cmd.Context(), func(a *app.App) error {
				if err := a.Store.RenameNursery(cmd.Context(), args[0], args[1]); err != nil {
					return fmt.Errorf("failed to rename nursery: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Renamed nursery %s\n", args[0])
				return nil
			})
		},
	}
}

func deleteCommand(env *app.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a nursery and all of its visits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Run(cmd.Context(), func(a *app.App) error {
				if err := a.Store.DeleteNursery(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to delete nursery: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted nursery %s\n", args[0])
				return nil
			})
		},
	}
}

func printNursery(out io.Writer, n *entities.Nursery) {
	_, _ = fmt.Fprintf(out, "%s (%s)\n", n.Name, n.ID)
	if len(n.VisitSessions) == 0 {
		_, _ = fmt.Fprintln(out, "  no visits planned")
		return
	}

	for i := range n.VisitSessions {
		s := &n.VisitSessions[i]
		_, _ = fmt.Fprintf(out, "  visit %s on %s [%s]\n", s.ID, s.VisitDate.Format(dateLayout), s.Status)
		for _, q := range s.Questions {
			mark := " "
			if q.IsAnswered {
				mark = "x"
			}
			_, _ = fmt.Fprintf(out, "    [%s] %s\n", mark, q.Text)
		}
		for _, insight := range s.Insights {
			_, _ = fmt.Fprintf(out, "    * %s\n", insight)
		}
	}
}
