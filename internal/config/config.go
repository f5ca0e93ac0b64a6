package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "DASHBOARD"

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	MonitorConfig
	DevAPIConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	API
	Session
	Monitor
	DevAPI
}

// New returns a Config resolved from DASHBOARD_* environment variables and defaults.
func New() Config {
	return newMainConfig(newViper())
}

// Load is New plus an optional config file (yaml, json or toml).
func Load(file string) (Config, error) {
	v := newViper()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config.Load ReadInConfig: %w", err)
		}
	}
	return newMainConfig(v), nil
}

// FromValues builds a Config from explicit key/value overrides. Used by tests.
func FromValues(values map[string]any) Config {
	v := newViper()
	for k, val := range values {
		v.Set(k, val)
	}
	return newMainConfig(v)
}

func newMainConfig(v *viper.Viper) mainConfig {
	return mainConfig{
		EnvVars: EnvVars{v: v},
		API:     API{v: v},
		Session: Session{v: v},
		Monitor: Monitor{v: v},
		DevAPI:  DevAPI{v: v},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyAppName, "Budget Dashboard")
	v.SetDefault(keyEnv, "DEV")
	v.SetDefault(keyLogLevel, "info")

	v.SetDefault(keyAPIBaseURL, "http://localhost:8080")
	v.SetDefault(keyAPIRequestTimeout, 30*time.Second)

	v.SetDefault(keySessionBackend, BackendFile)
	v.SetDefault(keySessionFile, "./data/session.json")
	v.SetDefault(keySessionStorageKey, "dashboard.session")
	v.SetDefault(keySessionRedisURL, "redis://localhost:6379/0")

	v.SetDefault(keyMonitorInterval, 120*time.Second)
	v.SetDefault(keyMonitorThreshold, 300*time.Second)

	v.SetDefault(keyDevAPIPort, "8080")
	v.SetDefault(keyDevAPISecret, "dev-secret-change-me")
	v.SetDefault(keyDevAPIAccessTokenExpiry, 5*time.Minute)
	v.SetDefault(keyDevAPIRefreshTokenExpiry, 24*time.Hour)
	v.SetDefault(keyDevAPISeedUsername, "demo")
	v.SetDefault(keyDevAPISeedPassword, "Demo1234")
	v.SetDefault(keyDevAPISeedUserLevel, "L2")
}
