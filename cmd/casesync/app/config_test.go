package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/pkg/errors"
)

// TestLoadConfig verifies defaults when nothing is configured.
func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "rest", config.StoreKind)
	assert.Equal(t, "v58.0", config.StoreAPIVersion)
	assert.Equal(t, "snapshot", config.SourceKind)
	assert.Equal(t, ".", config.ReportDir)
	assert.Equal(t, 2*time.Hour, config.Timeout)
	assert.Equal(t, "auto", config.LogFormat)
}

// TestConfig_EnvironmentVariables verifies environment variable loading.
func TestConfig_EnvironmentVariables(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CASESYNC_STORE_KIND", "SQLite")
	t.Setenv("CASESYNC_STORE_PATH", "/tmp/x.db")
	t.Setenv("CASESYNC_TIMEOUT", "15m")
	t.Setenv("CASESYNC_CONTACT_ACCOUNT", "001ACC")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", config.StoreKind)
	assert.Equal(t, "/tmp/x.db", config.StorePath)
	assert.Equal(t, 15*time.Minute, config.Timeout)
	assert.Equal(t, "001ACC", config.ContactAccount)
}

func TestConfig_EnvFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CASESYNC_REPORT_DIR=reports\nCASESYNC_STORE_URL=https://env\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("CASESYNC_STORE_URL=https://local\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("CASESYNC_REPORT_DIR")
		os.Unsetenv("CASESYNC_STORE_URL")
	})

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "reports", config.ReportDir)
	assert.Equal(t, "https://local", config.StoreURL)
}

func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "casesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`store:
  kind: sqlite
  path: data/casesync.db
source:
  kind: snapshot
  path: listing.yaml
timeout: 5m
`), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, config.ConfigFile)
	assert.Equal(t, "sqlite", config.StoreKind)
	assert.Equal(t, "data/casesync.db", config.StorePath)
	assert.Equal(t, "listing.yaml", config.SourcePath)
	assert.Equal(t, 5*time.Minute, config.Timeout)
	require.NoError(t, config.Validate())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{StoreKind: "memory", SourceKind: "memory"}, ""},
		{"rest", Config{StoreKind: "rest", StoreURL: "https://x", StoreToken: "t", SourceKind: "snapshot"}, ""},
		{"unknown store", Config{StoreKind: "mongo", SourceKind: "snapshot"}, "unsupported store kind"},
		{"rest without url", Config{StoreKind: "rest", SourceKind: "snapshot"}, "store.url"},
		{"rest without token", Config{StoreKind: "rest", StoreURL: "https://x", SourceKind: "snapshot"}, "CASESYNC_STORE_TOKEN"},
		{"unknown source", Config{StoreKind: "memory", SourceKind: "website"}, "unsupported source kind"},
		{"negative timeout", Config{StoreKind: "memory", SourceKind: "memory", Timeout: -time.Second}, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
