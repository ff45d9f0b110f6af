// Package conf loads visitprep settings from config.yaml, environment variables and defaults.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/visitprep/internal/errors"
	"github.com/tphakala/visitprep/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

// EnvPrefix is prepended to every environment override, e.g. VISITPREP_STORAGE_BACKEND.
const EnvPrefix = "VISITPREP"

// Settings contains all configuration options for visitprep.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Storage   StorageSettings      `yaml:"storage" mapstructure:"storage"`
	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Telemetry TelemetrySettings    `yaml:"telemetry" mapstructure:"telemetry"`
	Metrics   MetricsSettings      `yaml:"metrics" mapstructure:"metrics"`
}

// StorageSettings selects and configures the persistence medium.
type StorageSettings struct {
	Backend            string         `yaml:"backend" mapstructure:"backend"`
	SlowQueryThreshold time.Duration  `yaml:"slowquerythreshold" mapstructure:"slowquerythreshold"`
	SQLite             SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL              MySQLSettings  `yaml:"mysql" mapstructure:"mysql"`
}

// SQLiteSettings holds the database file location. Relative paths resolve against the config directory.
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MySQLSettings holds MySQL connection parameters.
type MySQLSettings struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         string `yaml:"port" mapstructure:"port"`
	Username     string `yaml:"username" mapstructure:"username"`
	Password     string `yaml:"password" mapstructure:"password"`
	Database     string `yaml:"database" mapstructure:"database"`
	TablePrefix  string `yaml:"tableprefix" mapstructure:"tableprefix"`
	MaxOpenConns int    `yaml:"maxopenconns" mapstructure:"maxopenconns"`
}

// TelemetrySettings controls Sentry error reporting. Off unless explicitly enabled.
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// MetricsSettings controls where Prometheus metrics are written after each command.
type MetricsSettings struct {
	TextfilePath string `yaml:"textfilepath" mapstructure:"textfilepath"`
}

// Load reads configuration into a new Settings value.
// configDir overrides the default search paths when non-empty.
func Load(configDir string) (*Settings, error) {
	return LoadWith(viper.New(), configDir)
}

// LoadWith reads configuration through v, so callers can bind command-line flags first.
func LoadWith(v *viper.Viper, configDir string) (*Settings, error) {
	if err := initViper(v, configDir); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_settings").
			Build()
	}

	if settings.Storage.Backend == BackendSQLite {
		settings.Storage.SQLite.Path = resolvePath(settings.Storage.SQLite.Path, v.ConfigFileUsed())
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper sets defaults, binds the environment and reads config.yaml if one exists.
// A missing config file is not an error.
func initViper(v *viper.Viper, configDir string) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return err
	}

	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}

	return nil
}

// WriteDefaultConfig writes the embedded default config.yaml into dir unless one exists.
// It returns the path of the config file.
func WriteDefaultConfig(dir string) (string, error) {
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return "", fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return "", fmt.Errorf("error writing default config file: %w", err)
	}

	return configPath, nil
}

// resolvePath makes a relative path relative to the config file directory.
func resolvePath(path, configFile string) string {
	path = os.ExpandEnv(path)
	if path == "" || filepath.IsAbs(path) || configFile == "" {
		return path
	}
	return filepath.Join(filepath.Dir(configFile), path)
}

// envKeyReplacer maps nested keys to environment names: storage.mysql.host -> STORAGE_MYSQL_HOST.
var envKeyReplacer = strings.NewReplacer(".", "_")
