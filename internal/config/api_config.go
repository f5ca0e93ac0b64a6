package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	keyAPIBaseURL        = "api.base_url"
	keyAPIRequestTimeout = "api.request_timeout"
)

type APIConfig interface {
	GetBaseURL() string
	// GetRequestTimeout bounds ordinary requests and the refresh exchange alike.
	GetRequestTimeout() time.Duration
}

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

// GetBaseURL returns the API root without a trailing slash
func (a API) GetBaseURL() string {
	return strings.TrimRight(a.v.GetString(keyAPIBaseURL), "/")
}

func (a API) GetRequestTimeout() time.Duration {
	return a.v.GetDuration(keyAPIRequestTimeout)
}
