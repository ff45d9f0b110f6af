package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/tphakala/visitprep/internal/errors"
)

// envBinding holds metadata for environment variable bindings with validation
type envBinding struct {
	ConfigKey string
	Validate  func(string) error
}

// envVarName returns the environment variable for a config key.
func envVarName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(envKeyReplacer.Replace(key))
}

// getEnvBindings lists keys whose environment values are checked before use.
// Every other key is still overridable through AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", validateEnvBool},
		{"storage.backend", validateEnvBackend},
		{"storage.mysql.port", validateEnvPort},
		{"storage.mysql.maxopenconns", validateEnvPositiveInt},
		{"telemetry.enabled", validateEnvBool},
		{"logging.default_level", validateEnvLogLevel},
	}
}

// bindEnvVars enables VISITPREP_* overrides and validates the ones listed in getEnvBindings.
func bindEnvVars(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	var problems []string
	for _, binding := range getEnvBindings() {
		name := envVarName(binding.ConfigKey)
		if err := v.BindEnv(binding.ConfigKey, name); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", name, err))
			continue
		}
		if value, ok := os.LookupEnv(name); ok && value != "" {
			if err := binding.Validate(value); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value %q: %v", name, value, err))
			}
		}
	}

	if len(problems) > 0 {
		return errors.Newf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - ")).
			Category(errors.CategoryConfiguration).
			Context("operation", "bind_env").
			Build()
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvBackend(value string) error {
	switch value {
	case BackendSQLite, BackendMySQL, BackendMemory:
		return nil
	default:
		return fmt.Errorf("must be one of %s, %s, %s", BackendSQLite, BackendMySQL, BackendMemory)
	}
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch value {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
}
