// Package apply provides the apply command for visitprep
package apply

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/visitprep/internal/app"
)

// Command creates and returns the apply command
func Command(env *app.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply NURSERY_ID TEMPLATE_ID",
		Short: "Append a template's questions to a nursery's first visit",
		Long:  `Apply appends every question of the template to the nursery's first visit session. A nursery without visits gets a default planned visit first.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, env, args[0], args[1])
		},
	}

	return cmd
}

func runApply(cmd *cobra.Command, env *app.Env, nurseryID, templateID string) error {
	return env.Run(cmd.Context(), func(a *app.App) error {
		updated, err := a.Store.ApplyTemplate(cmd.Context(), nurseryID, templateID)
		if err != nil {
			return fmt.Errorf("failed to apply template: %w", err)
		}

		session := updated.VisitSessions[0]
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Applied template %s to %s: visit %s now has %d questions\n",
			templateID, updated.Name, session.ID, len(session.Questions))
		return nil
	})
}
