// Package legacy provides the legacy command for visitprep
package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/visitprep/internal/app"
	"github.com/tphakala/visitprep/internal/datastore"
	"github.com/tphakala/visitprep/internal/datastore/migration"
	"github.com/tphakala/visitprep/internal/errors"
)

// Command creates and returns the legacy command
func Command(env *app.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "Work with data from the question list era",
	}

	cmd.AddCommand(importCommand(env))

	return cmd
}

func importCommand(env *app.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Store legacy question lists from a JSON file for migration",
		Long:  `Import reads a JSON array of question lists, or an object keyed by list id, and stores the records unchanged. Run migrate afterwards to convert them, or migrate --force when migration already completed. Stored nurseries are kept either way.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			records, err := ParseRecords(data)
			if err != nil {
				return err
			}

			return env.Run(cmd.Context(), func(a *app.App) error {
				if err := datastore.NewLegacyRepository(a.Storage).ImportRaw(cmd.Context(), records); err != nil {
					return fmt.Errorf("failed to import question lists: %w", err)
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "Imported %d question lists\n", len(records))
				if a.Migrator.State().State() == migration.StateMigrated {
					_, _ = fmt.Fprintln(out, "Migration already completed; run migrate --force to add them to your nurseries")
				}
				return nil
			})
		},
	}
}

// ParseRecords splits a legacy export into raw records. Record bodies are not
// validated here; migration skips the malformed ones.
func ParseRecords(data []byte) ([]datastore.RawRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, invalidFile("file is empty")
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, invalidFile(err.Error())
		}
		records := make([]datastore.RawRecord, 0, len(items))
		for i, item := range items {
			var head struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(item, &head); err != nil || head.ID == "" {
				return nil, invalidFile(fmt.Sprintf("entry %d has no id", i))
			}
			records = append(records, datastore.RawRecord{Key: head.ID, Data: item})
		}
		return records, nil

	case '{':
		var byID map[string]json.RawMessage
		if err := json.Unmarshal(data, &byID); err != nil {
			return nil, invalidFile(err.Error())
		}
		records := make([]datastore.RawRecord, 0, len(byID))
		for key, item := range byID {
			records = append(records, datastore.RawRecord{Key: key, Data: item})
		}
		return records, nil

	default:
		return nil, invalidFile("expected a JSON array or object")
	}
}

func invalidFile(reason string) error {
	return errors.Newf("invalid legacy export: %s", reason).
		Component("cmd/legacy").
		Category(errors.CategoryValidation).
		Build()
}
