// Package configinit provides the init-config command for visitprep
package configinit

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/visitprep/internal/conf"
)

// Command creates and returns the init-config command. configDir points at the
// value of the global --config flag.
func Command(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write the default config.yaml",
		Long:  `Init-config writes the default config.yaml into the --config directory, or the first default search path. An existing file is left untouched.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := *configDir
			if dir == "" {
				paths, err := conf.GetDefaultConfigPaths()
				if err != nil {
					return err
				}
				dir = paths[0]
			}

			path, err := conf.WriteDefaultConfig(dir)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", path)
			return nil
		},
	}
}
