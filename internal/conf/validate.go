package conf

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tphakala/visitprep/internal/errors"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateStorageSettings(&settings.Storage); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLoggingLevels(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_settings").
			Context("error_count", len(ve.Errors)).
			Build()
	}

	return nil
}

func validateStorageSettings(s *StorageSettings) error {
	switch s.Backend {
	case BackendSQLite:
		if s.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
		}
	case BackendMySQL:
		var missing []string
		if s.MySQL.Host == "" {
			missing = append(missing, "host")
		}
		if s.MySQL.Port == "" {
			missing = append(missing, "port")
		}
		if s.MySQL.Username == "" {
			missing = append(missing, "username")
		}
		if s.MySQL.Database == "" {
			missing = append(missing, "database")
		}
		if len(missing) > 0 {
			return fmt.Errorf("storage.mysql is missing: %s", strings.Join(missing, ", "))
		}
		if s.MySQL.MaxOpenConns < 0 {
			return fmt.Errorf("storage.mysql.maxopenconns must not be negative")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend %q is not one of %s, %s, %s", s.Backend, BackendSQLite, BackendMySQL, BackendMemory)
	}

	if s.SlowQueryThreshold < 0 {
		return fmt.Errorf("storage.slowquerythreshold must not be negative")
	}
	return nil
}

func validateLoggingLevels(settings *Settings) error {
	check := func(name, level string) error {
		if level == "" {
			return nil
		}
		if err := validateEnvLogLevel(level); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}

	cfg := &settings.Logging
	if err := check("logging.default_level", cfg.DefaultLevel); err != nil {
		return err
	}
	if cfg.Console != nil {
		if err := check("logging.console.level", cfg.Console.Level); err != nil {
			return err
		}
	}
	if cfg.FileOutput != nil {
		if err := check("logging.file_output.level", cfg.FileOutput.Level); err != nil {
			return err
		}
	}
	for module, level := range cfg.ModuleLevels {
		if err := check("logging.module_levels."+module, level); err != nil {
			return err
		}
	}
	return nil
}

func validateTelemetrySettings(t *TelemetrySettings) error {
	if !t.Enabled {
		return nil
	}
	if t.DSN == "" {
		return fmt.Errorf("telemetry.dsn is required when telemetry is enabled")
	}
	u, err := url.Parse(t.DSN)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("telemetry.dsn is not a valid URL")
	}
	return nil
}
