package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	keyMonitorInterval  = "monitor.interval"
	keyMonitorThreshold = "monitor.threshold"
)

type MonitorConfig interface {
	GetRefreshCheckInterval() time.Duration
	GetRefreshThreshold() time.Duration
}

type Monitor struct {
	v *viper.Viper
}

var _ MonitorConfig = Monitor{}

func (m Monitor) GetRefreshCheckInterval() time.Duration {
	return m.v.GetDuration(keyMonitorInterval)
}

// GetRefreshThreshold is how close to expiry an access token may get before it is refreshed
func (m Monitor) GetRefreshThreshold() time.Duration {
	return m.v.GetDuration(keyMonitorThreshold)
}
