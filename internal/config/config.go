package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the incident analyzer.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
	Assistant AssistantConfig `yaml:"assistant"`
	Cache     CacheConfig     `yaml:"cache"`
}

// ServerConfig controls the HTTP, gRPC and metrics listeners. Empty gRPC or
// metrics addresses disable those listeners.
type ServerConfig struct {
	HTTPAddress     string        `yaml:"httpAddress"`
	GRPCAddress     string        `yaml:"grpcAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	Mode            string        `yaml:"mode"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// CORSConfig lists origins allowed to call the HTTP facade.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AssistantConfig controls the statistical assistant.
type AssistantConfig struct {
	// RefitPerRequest trains a fresh model for every prediction instead of sharing one.
	RefitPerRequest bool `yaml:"refitPerRequest"`
}

// CacheConfig controls the in-process memo of analysis responses.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("INCIDENT_ANALYZER_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddress:     ":5000",
			GRPCAddress:     ":50051",
			MetricsAddress:  ":2112",
			Mode:            "release",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    15 * time.Second,
			GracefulTimeout: 10 * time.Second,
		},
		CORS:    CORSConfig{AllowedOrigins: []string{"*"}},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache:   CacheConfig{Enabled: false, Size: 1024},
	}
}

func (c *Config) validate() error {
	if c.Server.HTTPAddress == "" {
		return errors.New("server.httpAddress is required")
	}
	switch c.Server.Mode {
	case "release", "debug", "test":
	default:
		return fmt.Errorf("server.mode must be release, debug or test, got %q", c.Server.Mode)
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive when the cache is enabled, got %d", c.Cache.Size)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INCIDENT_ANALYZER_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v, ok := os.LookupEnv("INCIDENT_ANALYZER_GRPC_ADDRESS"); ok {
		cfg.Server.GRPCAddress = v
	}
	if v, ok := os.LookupEnv("INCIDENT_ANALYZER_METRICS_ADDRESS"); ok {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_MODE"); v != "" {
		cfg.Server.Mode = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CORS_ORIGINS"); v != "" {
		origins := make([]string, 0)
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}
	if v := os.Getenv("INCIDENT_ANALYZER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INCIDENT_ANALYZER_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("INCIDENT_ANALYZER_REFIT_PER_REQUEST"); v != "" {
		cfg.Assistant.RefitPerRequest = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("INCIDENT_ANALYZER_CACHE_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Size = size
		}
	}
}
