package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visitprep/internal/logger"
)

func validSettings() *Settings {
	return &Settings{
		Storage: StorageSettings{
			Backend: BackendSQLite,
			SQLite:  SQLiteSettings{Path: "visitprep.db"},
		},
		Logging: logger.LoggingConfig{DefaultLevel: "info"},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{name: "valid sqlite", mutate: func(*Settings) {}},
		{name: "valid memory", mutate: func(s *Settings) { s.Storage.Backend = BackendMemory }},
		{
			name:    "unknown backend",
			mutate:  func(s *Settings) { s.Storage.Backend = "redis" },
			wantErr: `storage.backend "redis"`,
		},
		{
			name:    "sqlite without path",
			mutate:  func(s *Settings) { s.Storage.SQLite.Path = "" },
			wantErr: "storage.sqlite.path is required",
		},
		{
			name: "mysql missing fields",
			mutate: func(s *Settings) {
				s.Storage.Backend = BackendMySQL
				s.Storage.MySQL = MySQLSettings{Host: "db", Port: "3306"}
			},
			wantErr: "storage.mysql is missing: username, database",
		},
		{
			name: "valid mysql",
			mutate: func(s *Settings) {
				s.Storage.Backend = BackendMySQL
				s.Storage.MySQL = MySQLSettings{Host: "db", Port: "3306", Username: "u", Database: "d"}
			},
		},
		{
			name:    "bad module level",
			mutate:  func(s *Settings) { s.Logging.ModuleLevels = map[string]string{"store": "loud"} },
			wantErr: "logging.module_levels.store",
		},
		{
			name:    "telemetry without dsn",
			mutate:  func(s *Settings) { s.Telemetry.Enabled = true },
			wantErr: "telemetry.dsn is required",
		},
		{
			name: "telemetry with dsn",
			mutate: func(s *Settings) {
				s.Telemetry = TelemetrySettings{Enabled: true, DSN: "https://key@o0.ingest.sentry.io/1"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationError_CollectsAll(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Storage.Backend = "redis"
	s.Telemetry.Enabled = true

	err := ValidateSettings(s)
	require.Error(t, err)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}
