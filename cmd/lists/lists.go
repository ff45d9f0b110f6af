// Package lists provides the lists command for visitprep
package lists

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/visitprep/internal/app"
	"github.com/tphakala/visitprep/internal/datastore/entities"
)

const dateLayout = "2006-01-02"

// Command creates and returns the lists command
func Command(env *app.Env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Print every visit as a legacy question list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.Run(cmd.Context(), func(a *app.App) error {
				all, err := a.Compat.GetAllQuestionLists(cmd.Context())
				if err != nil {
					return err
				}

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(all)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tTITLE\tNURSERY\tQUESTIONS")
				for i := range all {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", all[i].ID, all[i].Title, all[i].NurseryName, len(all[i].Questions))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.AddCommand(createCommand(env))

	return cmd
}

func createCommand(env *app.Env) *cobra.Command {
	var (
		nurseryName string
		visitDate   string
		questions   []string
	)

	cmd := &cobra.Command{
		Use:   "create TITLE",
		Short: "Create a question list the legacy way",
		Long:  `Create adds a visit to the nursery named by --nursery, or by TITLE when --nursery is empty. The nursery is created when it does not exist yet.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := &entities.QuestionListInput{
				Title:       args[0],
				NurseryName: nurseryName,
			}

			if visitDate != "" {
				date, err := time.Parse(dateLayout, visitDate)
				if err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD: %w", visitDate, err)
				}
				input.VisitDate = &date
			}

			return env.Run(cmd.Context(), func(a *app.App) error {
				now := time.Now()
				for _, text := range questions {
					input.Questions = append(input.Questions, entities.NewQuestion(entities.NewID(), text, now))
				}

				id, err := a.Compat.CreateQuestionList(cmd.Context(), input)
				if err != nil {
					return fmt.Errorf("failed to create question list: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created question list %s\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&nurseryName, "nursery", "", "Nursery the visit belongs to")
	cmd.Flags().StringVar(&visitDate, "date", "", "Visit date as YYYY-MM-DD")
	cmd.Flags().StringArrayVarP(&questions, "question", "q", nil, "Question to add, may be repeated")

	return cmd
}
