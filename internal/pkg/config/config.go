package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultPath is the config file used when none is given.
const DefaultPath = "config.yaml"

// EnvPrefix prefixes environment overrides, e.g. BARE_SERVER__PORT=9000.
const EnvPrefix = "BARE_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Routing   RoutingConfig   `koanf:"routing"`
	Backends  []BackendConfig `koanf:"backends"`
	Storage   StorageConfig   `koanf:"storage"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Host    string            `koanf:"host"`
	Port    int               `koanf:"port"`
	Timeout time.Duration     `koanf:"timeout"`
	APIKeys []string          `koanf:"api_keys"`
	Env     map[string]string `koanf:"env"`
}

// RoutingConfig selects how a request's backend alias is resolved.
type RoutingConfig struct {
	Strategy     string `koanf:"strategy"` // header, path, param
	Header       string `koanf:"header"`
	Param        string `koanf:"param"`
	DefaultAlias string `koanf:"default_alias"`
}

type BackendConfig struct {
	Name    string        `koanf:"name"`
	Type    string        `koanf:"type"` // echo, http-proxy
	Aliases []string      `koanf:"aliases"`
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`

	// DenyPrivateNetworks refuses upstream connections to non-public addresses.
	DenyPrivateNetworks bool `koanf:"deny_private_networks"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
	Dir   string `koanf:"dir"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads DefaultPath, if present, then applies environment overrides.
func Load() (*Config, error) {
	return LoadFile(DefaultPath)
}

// LoadFile reads the YAML file at path, if present, then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	// Environment variables override file config
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i := range cfg.Server.APIKeys {
		cfg.Server.APIKeys[i] = substituteEnvVars(cfg.Server.APIKeys[i])
	}
	for i := range cfg.Backends {
		cfg.Backends[i].APIKey = substituteEnvVars(cfg.Backends[i].APIKey)
		cfg.Backends[i].BaseURL = substituteEnvVars(cfg.Backends[i].BaseURL)
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.host":      "localhost",
		"server.port":      8080,
		"server.timeout":   "30s",
		"routing.strategy": "header",
		"routing.header":   "X-Backend-Alias",
		"routing.param":    "backend",
		"storage.type":     "memory",
		"logging.level":    "info",
	}
	for key, v := range defaults {
		if !k.Exists(key) {
			k.Set(key, v)
		}
	}
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
