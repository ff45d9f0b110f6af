// Package migrate provides the migrate command for visitprep
package migrate

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/visitprep/internal/app"
	"github.com/tphakala/visitprep/internal/datastore/migration"
)

// Command creates and returns the migrate command
func Command(env *app.Env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Convert legacy question lists into nurseries",
		Long:  `Migrate groups stored legacy question lists by nursery name and saves them as nurseries with visit sessions. It runs once unless --force is given; a forced run only adds lists that are not stored yet.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, env, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run again even if migration already completed, adding legacy lists not converted yet")

	return cmd
}

func runMigrate(cmd *cobra.Command, env *app.Env, force bool) error {
	return env.Run(cmd.Context(), func(a *app.App) error {
		var opts []migration.RunOption
		if force {
			opts = append(opts, migration.WithForce())
		}

		report, err := a.Migrator.EnsureMigrated(cmd.Context(), opts...)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if !report.Ran {
			_, _ = fmt.Fprintln(out, "Migration already completed")
			return nil
		}

		_, _ = fmt.Fprintf(out, "Converted %d question lists into %d nurseries in %s\n",
			report.Converted, report.Nurseries, report.Duration.Round(time.Millisecond))
		for _, skipped := range report.Skipped {
			_, _ = fmt.Fprintf(out, "Skipped %s: %v\n", skipped.Key, skipped.Err)
		}
		return nil
	})
}
