package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	keyDevAPIPort               = "devapi.port"
	keyDevAPISecret             = "devapi.secret"
	keyDevAPIAccessTokenExpiry  = "devapi.access_token_expiry"
	keyDevAPIRefreshTokenExpiry = "devapi.refresh_token_expiry"
	keyDevAPISeedUsername       = "devapi.seed_username"
	keyDevAPISeedPassword       = "devapi.seed_password"
	keyDevAPISeedUserLevel      = "devapi.seed_user_level"
)

type DevAPIConfig interface {
	GetPort() string
	GetSigningSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetSeedUser() (username, password, userLevel string)
}

type DevAPI struct {
	v *viper.Viper
}

var _ DevAPIConfig = DevAPI{}

// GetPort returns the listen address, e.g. ":8080"
func (d DevAPI) GetPort() string {
	port := d.v.GetString(keyDevAPIPort)
	if port == "" {
		port = "8080"
	}
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (d DevAPI) GetSigningSecret() string {
	return d.v.GetString(keyDevAPISecret)
}

func (d DevAPI) GetAccessTokenExpiry() time.Duration {
	return d.v.GetDuration(keyDevAPIAccessTokenExpiry)
}

func (d DevAPI) GetRefreshTokenExpiry() time.Duration {
	return d.v.GetDuration(keyDevAPIRefreshTokenExpiry)
}

// GetSeedUser returns the account created when the dev API starts
func (d DevAPI) GetSeedUser() (username, password, userLevel string) {
	return d.v.GetString(keyDevAPISeedUsername), d.v.GetString(keyDevAPISeedPassword), d.v.GetString(keyDevAPISeedUserLevel)
}
