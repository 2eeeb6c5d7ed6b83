package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CATALOG_DIR", "CATALOG_EXT", "TAXONOMY_PATH", "LEDGER_DRIVER", "DATABASE_URL",
	"SQLITE_PATH", "WORKERS", "RETRY_ATTEMPTS", "RETRY_BASE_DELAY", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "catalog", cfg.CatalogDir)
	assert.Equal(t, ".txt", cfg.CatalogExt)
	assert.Equal(t, "categories.json", cfg.TaxonomyPath)
	assert.Equal(t, DriverPostgres, cfg.LedgerDriver)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, []string{"Protection", "Travel Perks", "Insurance"}, cfg.DuplicateAllowGroups)
	assert.Positive(t, cfg.Workers)
}

func TestLoadFileThenEnv(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "yaml",
			file: "catalog.yaml",
			body: `catalog_dir: cards
ledger_driver: sqlite
workers: 2
retry_base_delay: 1s
log_level: debug
duplicate_allow_groups: [Protection]
`,
		},
		{
			name: "toml",
			file: "catalog.toml",
			body: `catalog_dir = "cards"
ledger_driver = "sqlite"
workers = 2
retry_base_delay = "1s"
log_level = "debug"
duplicate_allow_groups = ["Protection"]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("WORKERS", "6")

			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "cards", cfg.CatalogDir)
			assert.Equal(t, DriverSQLite, cfg.LedgerDriver)
			assert.Equal(t, 6, cfg.Workers, "env wins over file")
			assert.Equal(t, time.Second, cfg.RetryBaseDelay)
			assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
			assert.Equal(t, []string{"Protection"}, cfg.DuplicateAllowGroups)
		})
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"driver", "LEDGER_DRIVER", "mysql"},
		{"workers", "WORKERS", "zero"},
		{"non-positive workers", "WORKERS", "0"},
		{"delay", "RETRY_BASE_DELAY", "soon"},
		{"extension", "CATALOG_EXT", "txt"},
		{"level", "LOG_LEVEL", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadUnsupportedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "catalog.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported format")
}
