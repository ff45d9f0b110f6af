package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/visitprep/internal/logger"
)

// setDefaultConfig sets default values for every configuration key.
// Keys must be registered here for environment overrides to reach Unmarshal.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.slowquerythreshold", 200*time.Millisecond)
	v.SetDefault("storage.sqlite.path", "visitprep.db")
	v.SetDefault("storage.mysql.host", "localhost")
	v.SetDefault("storage.mysql.port", "3306")
	v.SetDefault("storage.mysql.username", "visitprep")
	v.SetDefault("storage.mysql.password", "")
	v.SetDefault("storage.mysql.database", "visitprep")
	v.SetDefault("storage.mysql.tableprefix", "")
	v.SetDefault("storage.mysql.maxopenconns", 10)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")

	v.SetDefault("metrics.textfilepath", "")
}
