// Package cmd assembles the visitprep command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/visitprep/cmd/apply"
	"github.com/tphakala/visitprep/cmd/configinit"
	"github.com/tphakala/visitprep/cmd/legacy"
	"github.com/tphakala/visitprep/cmd/lists"
	"github.com/tphakala/visitprep/cmd/migrate"
	"github.com/tphakala/visitprep/cmd/nursery"
	"github.com/tphakala/visitprep/cmd/templates"
	"github.com/tphakala/visitprep/cmd/version"
	"github.com/tphakala/visitprep/internal/app"
	"github.com/tphakala/visitprep/internal/buildinfo"
	"github.com/tphakala/visitprep/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(build *buildinfo.Context) *cobra.Command {
	env := &app.Env{Build: build}
	v := viper.New()
	var configDir string

	rootCmd := &cobra.Command{
		Use:           "visitprep",
		Short:         "Prepare questions for nursery visits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, v, env, &configDir); err != nil {
		// Flag binding only fails on programmer error.
		panic(err)
	}

	versionCmd := version.Command(build)
	configCmd := configinit.Command(&configDir)

	rootCmd.AddCommand(
		migrate.Command(env),
		templates.Command(env),
		nursery.Command(env),
		apply.Command(env),
		lists.Command(env),
		legacy.Command(env),
		configCmd,
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for commands that never touch storage
		if cmd.Name() == versionCmd.Name() || cmd.Name() == configCmd.Name() {
			return nil
		}

		settings, err := conf.LoadWith(v, configDir)
		if err != nil {
			return err
		}
		env.Settings = settings
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, v *viper.Viper, env *app.Env, configDir *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configDir, "config", "c", "", "Directory containing config.yaml")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.BoolVar(&env.Ephemeral, "ephemeral", false, "Keep all data in memory for this run")

	if err := v.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
