// Package config wraps spf13/viper with the precedence chain flag > env >
// config file > default: walk-up-from-cwd discovery of a project
// ".arbor/config.yaml", ARBOR_-prefixed environment overrides, and
// ConfigSource/ConfigOverride provenance tracking for verbose-mode
// diagnostics.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton. Call once at
// process startup before any Get* function is used.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// 1. Walk up from CWD looking for .arbor/config.yaml, so commands work
	// from any subdirectory of a checked-out tree.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".arbor", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. XDG user config directory.
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "arbor", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory fallback.
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".arbor", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("ARBOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("json", false)
	v.SetDefault("verbose", false)
	v.SetDefault("remote-url", "")
	v.SetDefault("store-dir", "")
	v.SetDefault("branching-info.backend", "dir") // "dir" or "revprop"
	v.SetDefault("branching-info.path", ".arbor/branching-info")
	v.SetDefault("lock-timeout", "5s")
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("watch.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("migrate.min-format-version", "v1.0.0")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("arbor: reading config file: %w", err)
		}
	}
	return nil
}

// ConfigSource identifies where a configuration value came from.
type ConfigSource string

const (
	SourceDefault    ConfigSource = "default"
	SourceConfigFile ConfigSource = "config_file"
	SourceEnvVar     ConfigSource = "env_var"
	SourceFlag       ConfigSource = "flag"
)

// ConfigOverride records a detected configuration override, for verbose
// startup diagnostics.
type ConfigOverride struct {
	Key            string
	EffectiveValue interface{}
	OverriddenBy   ConfigSource
	OriginalSource ConfigSource
}

// GetValueSource reports where key's effective value came from, among
// env var / config file / default. Flag overrides are detected separately
// by the CLI layer, which knows which flags were explicitly set.
func GetValueSource(key string) ConfigSource {
	if v == nil {
		return SourceDefault
	}
	envKey := "ARBOR_" + strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(key, "-", "_"), ".", "_"))
	if os.Getenv(envKey) != "" {
		return SourceEnvVar
	}
	if v.InConfig(key) {
		return SourceConfigFile
	}
	return SourceDefault
}

// CheckOverrides reports flags that were explicitly set and are shadowing
// a config-file or env-var value, for verbose-mode diagnostics.
func CheckOverrides(flagsSet map[string]interface{}) []ConfigOverride {
	var overrides []ConfigOverride
	for key, val := range flagsSet {
		source := GetValueSource(key)
		if source == SourceConfigFile || source == SourceEnvVar {
			overrides = append(overrides, ConfigOverride{
				Key:            key,
				EffectiveValue: val,
				OverriddenBy:   SourceFlag,
				OriginalSource: source,
			})
		}
	}
	return overrides
}

func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}
