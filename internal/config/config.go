package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL       string
	StorePath    string
	DatabaseURL  string
	SealKey      string
	RPCAddr      string
	PollInterval time.Duration
	OTPCooldown  int
	HTTPTimeout  time.Duration
	AuthRPS      float64
	AuthBurst    int
	PushToken    string
	LogLevel     string
	LogJSON      bool
}

// file is the optional YAML layer. Durations are strings ("10s").
type file struct {
	APIURL       string  `yaml:"api_url"`
	Store        string  `yaml:"store"`
	DatabaseURL  string  `yaml:"database_url"`
	SealKey      string  `yaml:"seal_key"`
	RPCAddr      string  `yaml:"rpc_addr"`
	PollInterval string  `yaml:"poll_interval"`
	OTPCooldown  int     `yaml:"otp_cooldown"`
	HTTPTimeout  string  `yaml:"http_timeout"`
	AuthRPS      float64 `yaml:"auth_rps"`
	AuthBurst    int     `yaml:"auth_burst"`
	PushToken    string  `yaml:"push_token"`
	Logging      struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`
}

// Load reads .env, then the YAML file at path, then the environment; each
// layer overrides the one before. An empty path means
// $SMARTBOARD_CONFIG or ~/.smartboard/config.yaml, either of which may be
// absent.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = getenv("SMARTBOARD_CONFIG", filepath.Join(homeDir(), ".smartboard", "config.yaml"))
	}
	var f file
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return Config{
		APIURL:       getenv("SMARTBOARD_API_URL", or(f.APIURL, "http://localhost:8086/api")),
		StorePath:    getenv("SMARTBOARD_STORE", or(f.Store, filepath.Join(homeDir(), ".smartboard", "session.db"))),
		DatabaseURL:  getenv("SMARTBOARD_DATABASE_URL", f.DatabaseURL),
		SealKey:      getenv("SMARTBOARD_SEAL_KEY", f.SealKey),
		RPCAddr:      getenv("SMARTBOARD_RPC_ADDR", f.RPCAddr),
		PollInterval: getenvDuration("SMARTBOARD_POLL_INTERVAL", parseDuration(f.PollInterval, 10*time.Second)),
		OTPCooldown:  getenvInt("SMARTBOARD_OTP_COOLDOWN", orInt(f.OTPCooldown, 60)),
		HTTPTimeout:  getenvDuration("SMARTBOARD_HTTP_TIMEOUT", parseDuration(f.HTTPTimeout, 15*time.Second)),
		AuthRPS:      getenvFloat("SMARTBOARD_AUTH_RPS", orFloat(f.AuthRPS, 1)),
		AuthBurst:    getenvInt("SMARTBOARD_AUTH_BURST", orInt(f.AuthBurst, 5)),
		PushToken:    getenv("SMARTBOARD_PUSH_TOKEN", f.PushToken),
		LogLevel:     getenv("SMARTBOARD_LOG_LEVEL", or(f.Logging.Level, "info")),
		LogJSON:      getenvBool("SMARTBOARD_LOG_JSON", f.Logging.JSON),
	}, nil
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func orInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func orFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}
