package config

import (
	"github.com/spf13/viper"
)

const (
	keySessionBackend    = "session.backend"
	keySessionFile       = "session.file"
	keySessionStorageKey = "session.storage_key"
	keySessionRedisURL   = "session.redis_url"
)

// Session persistence backends
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type SessionConfig interface {
	GetSessionBackend() string
	GetSessionFile() string
	GetStorageKey() string
	GetRedisURL() string
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

func (s Session) GetSessionBackend() string {
	switch b := s.v.GetString(keySessionBackend); b {
	case BackendRedis, BackendMemory:
		return b
	default:
		return BackendFile
	}
}

func (s Session) GetSessionFile() string {
	return s.v.GetString(keySessionFile)
}

func (s Session) GetStorageKey() string {
	return s.v.GetString(keySessionStorageKey)
}

func (s Session) GetRedisURL() string {
	return s.v.GetString(keySessionRedisURL)
}
