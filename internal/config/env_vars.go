package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	keyAppName  = "app_name"
	keyEnv      = "env"
	keyLogLevel = "log_level"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(keyAppName)
}

// GetEnv returns the deployment environment, upper-cased ("DEV", "PROD", ...)
func (e EnvVars) GetEnv() string {
	env := strings.ToUpper(strings.TrimSpace(e.v.GetString(keyEnv)))
	if env == "" {
		return "DEV"
	}
	return env
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(e.v.GetString(keyLogLevel))
}
