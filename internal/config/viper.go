// Package config provides helpers for reading casesync settings through Viper.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentstation/casesync/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by casesync.
const EnvPrefix = "CASESYNC"

// Setting keys.
const (
	KeyStoreKind       = "store.kind"
	KeyStoreURL        = "store.url"
	KeyStoreToken      = "store.token"
	KeyStoreAPIVersion = "store.api_version"
	KeyStorePath       = "store.path"
	KeySourceKind      = "source.kind"
	KeySourcePath      = "source.path"
	KeyReportDir       = "report.dir"
	KeyContactAccount  = "contact_account"
	KeyTimeout         = "timeout"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyLogOutput       = "log_output"
)

// Keys lists every setting bound to an environment variable.
func Keys() []string {
	return []string{
		KeyStoreKind, KeyStoreURL, KeyStoreToken, KeyStoreAPIVersion, KeyStorePath,
		KeySourceKind, KeySourcePath, KeyReportDir, KeyContactAccount, KeyTimeout,
		KeyLogLevel, KeyLogFormat, KeyLogOutput,
	}
}

// EnvName returns the environment variable of key, e.g. CASESYNC_STORE_URL.
func EnvName(key string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return EnvPrefix + "_" + strings.ToUpper(r.Replace(key))
}

// Bind binds every key of Keys to its environment variable on v.
func Bind(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range Keys() {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// GetString is a helper to get string values from Viper.
// It checks both the Viper configuration and the OS environment.
func GetString(v *viper.Viper, key string) string {
	viperValue := v.GetString(key)
	if viperValue != "" {
		return viperValue
	}
	return os.Getenv(EnvName(key))
}

// GetToken returns the store access token. It is required only when
// required is set (the rest store).
func GetToken(v *viper.Viper, required bool) (string, error) {
	token := GetString(v, KeyStoreToken)
	if token == "" && required {
		return "", errors.NewConfigError("store",
			fmt.Sprintf("access token not set (use %s or %s in the config file)", EnvName(KeyStoreToken), KeyStoreToken), nil)
	}
	return token, nil
}
