package config

import (
	"fmt"
)

const (
	FanoutRedis  = "redis"
	FanoutMemory = "memory"
)

type Config struct {
	ServerAddr      string
	DatabaseDSN     string
	RedisURL        string
	UsersServiceURL string
	// FanoutDriver selects the bus implementation: "redis" for multi-instance
	// deployments, "memory" for a single process.
	FanoutDriver   string
	AllowedOrigins []string
	// StrictFrames closes sockets on protocol violations instead of dropping
	// the offending frame.
	StrictFrames bool
}

func NewConfig(serverAddr, databaseDSN, redisURL, usersServiceURL, fanoutDriver string,
	allowedOrigins []string, strictFrames bool) (*Config, error) {

	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if usersServiceURL == "" {
		return nil, fmt.Errorf("users service URL cannot be empty")
	}

	switch fanoutDriver {
	case FanoutRedis:
		if redisURL == "" {
			return nil, fmt.Errorf("redis URL cannot be empty with the redis fanout driver")
		}
	case FanoutMemory:
	default:
		return nil, fmt.Errorf("unknown fanout driver %q", fanoutDriver)
	}

	return &Config{
		ServerAddr:      serverAddr,
		DatabaseDSN:     databaseDSN,
		RedisURL:        redisURL,
		UsersServiceURL: usersServiceURL,
		FanoutDriver:    fanoutDriver,
		AllowedOrigins:  allowedOrigins,
		StrictFrames:    strictFrames,
	}, nil
}
