package app

import (
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/casesync/internal/config"
	"github.com/agentstation/casesync/internal/stores/registry"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/sources"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Remote store
	StoreKind       string
	StoreURL        string
	StoreToken      string
	StoreAPIVersion string
	StorePath       string

	// Source collector
	SourceKind string
	SourcePath string

	// Sync
	ReportDir      string
	ContactAccount string
	Timeout        time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (CASESYNC_*)
// 3. .env files
// 4. Config file (~/.casesync.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	if err := config.Bind(v); err != nil {
		return nil, errors.NewConfigError("env", "cannot bind environment", err)
	}

	v.SetDefault(config.KeyStoreKind, string(registry.KindREST))
	v.SetDefault(config.KeyStoreAPIVersion, constants.DefaultAPIVersion)
	v.SetDefault(config.KeyStorePath, constants.DefaultSQLitePath)
	v.SetDefault(config.KeySourceKind, string(sources.SnapshotID))
	v.SetDefault(config.KeyReportDir, constants.DefaultReportDir)
	v.SetDefault(config.KeyTimeout, constants.SyncTimeout)
	v.SetDefault(config.KeyLogFormat, "auto")
	v.SetDefault(config.KeyLogOutput, "stderr")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName(".casesync")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit file must exist, the search locations are optional
		if configFile != "" || !stderrors.As(err, &notFound) {
			return nil, errors.NewConfigError("file", "cannot read config file", err)
		}
	}

	cfg := &Config{
		ConfigFile: v.ConfigFileUsed(),

		StoreKind:       strings.ToLower(config.GetString(v, config.KeyStoreKind)),
		StoreURL:        config.GetString(v, config.KeyStoreURL),
		StoreAPIVersion: config.GetString(v, config.KeyStoreAPIVersion),
		StorePath:       config.GetString(v, config.KeyStorePath),

		SourceKind: strings.ToLower(config.GetString(v, config.KeySourceKind)),
		SourcePath: config.GetString(v, config.KeySourcePath),

		ReportDir:      config.GetString(v, config.KeyReportDir),
		ContactAccount: config.GetString(v, config.KeyContactAccount),
		Timeout:        v.GetDuration(config.KeyTimeout),

		LogLevel:  config.GetString(v, config.KeyLogLevel),
		LogFormat: config.GetString(v, config.KeyLogFormat),
		LogOutput: config.GetString(v, config.KeyLogOutput),
	}

	// required-ness depends on the store kind and is checked by Validate
	token, err := config.GetToken(v, false)
	if err != nil {
		return nil, err
	}
	cfg.StoreToken = token

	return cfg, nil
}

// Validate checks the settings needed to build a store and a collector.
func (c *Config) Validate() error {
	if !registry.Has(registry.Kind(c.StoreKind)) {
		return errors.NewConfigError("store", "unsupported store kind "+c.StoreKind, nil)
	}
	if registry.Kind(c.StoreKind) == registry.KindREST {
		if c.StoreURL == "" {
			return errors.NewConfigError("store", "store.url is required for the rest store", nil)
		}
		if c.StoreToken == "" {
			return errors.NewConfigError("store", "access token not set (use "+config.EnvName(config.KeyStoreToken)+")", nil)
		}
	}
	if !sources.ID(c.SourceKind).IsValid() {
		return errors.NewConfigError("source", "unsupported source kind "+c.SourceKind, nil)
	}
	if c.Timeout < 0 {
		return errors.NewConfigError("timeout", "timeout must not be negative", nil)
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
