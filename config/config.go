// Package config reads the console and stub backend settings from the
// environment.
package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Auth modes understood by the console.
const (
	AuthUnverified = "unverified"
	AuthShared     = "hs256"
	AuthJWKS       = "jwks"
)

// Config holds everything the binaries need to start.
type Config struct {
	Debug bool

	APIBaseURL string
	Site       string
	Board      string
	Token      string

	AuthMode     string
	SharedSecret string
	Auth0Domain  string
	Audience     string
	JWKSCacheTTL time.Duration

	RedisConn     string
	NotifyChannel string
	DirectoryTTL  time.Duration

	ActivationDistance int
	RequestTimeout     time.Duration
	LogFile            string

	ListenAddr   string
	FixturesPath string
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	c := Config{
		APIBaseURL:    envString("SITEBOARD_API_URL", "http://localhost:8080"),
		Site:          os.Getenv("SITEBOARD_SITE"),
		Board:         envString("SITEBOARD_BOARD", "issues"),
		Token:         os.Getenv("SITEBOARD_TOKEN"),
		AuthMode:      strings.ToLower(os.Getenv("LOCAL_AUTH_MODE")),
		SharedSecret:  os.Getenv("LOCAL_AUTH_SHARED_SECRET"),
		Auth0Domain:   os.Getenv("AUTH0_DOMAIN"),
		Audience:      os.Getenv("AUTH0_AUDIENCE"),
		RedisConn:     os.Getenv("REDIS_CONNECTION_STRING"),
		NotifyChannel: envString("BOARD_UPDATES_CHANNEL", "board-updates"),
		LogFile:       envString("SITEBOARD_LOG_FILE", "siteboard.log"),
		FixturesPath:  os.Getenv("STUB_FIXTURES"),
		ListenAddr:    ":8080",
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil {
		c.Debug = dbg
	}
	if val := os.Getenv("STUB_API_PORT"); val != "" {
		c.ListenAddr = ":" + val
	}

	var err error
	if c.JWKSCacheTTL, err = envDur("JWKS_CACHE_TTL", 15*time.Minute); err != nil {
		return c, err
	}
	if c.DirectoryTTL, err = envDur("DIRECTORY_CACHE_TTL", 10*time.Minute); err != nil {
		return c, err
	}
	if c.RequestTimeout, err = envDur("SITEBOARD_REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return c, err
	}
	if c.ActivationDistance, err = envInt("DRAG_ACTIVATION_DISTANCE", 2); err != nil {
		return c, err
	}

	if c.AuthMode == "" {
		switch {
		case c.SharedSecret != "":
			c.AuthMode = AuthShared
		case c.Auth0Domain != "":
			c.AuthMode = AuthJWKS
		default:
			c.AuthMode = AuthUnverified
		}
	}
	return c, c.Validate()
}

// Validate checks the settings that depend on each other.
func (c Config) Validate() error {
	switch c.AuthMode {
	case AuthUnverified:
	case AuthShared:
		if c.SharedSecret == "" {
			return fmt.Errorf("LOCAL_AUTH_SHARED_SECRET must be set when LOCAL_AUTH_MODE=%s", AuthShared)
		}
	case AuthJWKS:
		if c.Auth0Domain == "" || c.Audience == "" {
			return fmt.Errorf("missing Auth0 config")
		}
	default:
		return fmt.Errorf("unsupported LOCAL_AUTH_MODE value %q", c.AuthMode)
	}
	if c.ActivationDistance < 0 {
		return fmt.Errorf("invalid DRAG_ACTIVATION_DISTANCE: must not be negative")
	}
	return nil
}

// JWKSURL is the hosted key set of the configured Auth0 tenant.
func (c Config) JWKSURL() string {
	return fmt.Sprintf("https://%s/.well-known/jwks.json", c.Auth0Domain)
}

// Issuer is the expected token issuer in JWKS mode.
func (c Config) Issuer() string {
	return "https://" + c.Auth0Domain + "/"
}

// RedisOptions parses a redis connection string. Both URLs and the
// "host:port,password=...,ssl=true" form are accepted.
func RedisOptions(conn string) (*redis.Options, error) {
	if strings.TrimSpace(conn) == "" {
		return nil, fmt.Errorf("missing redis config")
	}
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDur(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", key)
	}
	return d, nil
}
