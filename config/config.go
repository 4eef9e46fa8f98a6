package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug                  bool          `envconfig:"debug"`
	Env                    string        `envconfig:"env"`
	BaseUrl                string        `envconfig:"base_url"`
	SocketUrl              string        `envconfig:"socket_url"`
	AccessToken            string        `envconfig:"access_token"`
	PageSize               int           `envconfig:"page_size"`
	RequestTimeout         time.Duration `envconfig:"request_timeout"`
	SocketHandshakeTimeout time.Duration `envconfig:"socket_handshake_timeout"`
	SocketRetryDelay       time.Duration `envconfig:"socket_retry_delay"`
	SocketMaxRetries       int           `envconfig:"socket_max_retries"`
	HeartbeatInterval      time.Duration `envconfig:"heartbeat_interval"`
}

func Load() (*Config, error) {
	env := os.Getenv("SOCIALITE_ENV")
	if env != "release" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	err := envconfig.Process("socialite", c)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.SocketHandshakeTimeout <= 0 {
		c.SocketHandshakeTimeout = 10 * time.Second
	}
	if c.SocketRetryDelay <= 0 {
		c.SocketRetryDelay = 3 * time.Second
	}
	if c.SocketMaxRetries <= 0 {
		c.SocketMaxRetries = 5
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
}
