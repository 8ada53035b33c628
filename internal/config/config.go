package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CatalogBuiltin  = "builtin"
	CatalogFile     = "file"
	CatalogPostgres = "postgres"

	DefaultGuardianshipURL = "https://moscowzoo.ru/about/guardianship"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server"`
	Telegram struct {
		Token           string `yaml:"token" env:"API_TOKEN"`
		PollTimeout     int    `yaml:"poll_timeout"`
		SkipPending     *bool  `yaml:"skip_pending"`
		GuardianshipURL string `yaml:"guardianship_url"`
	} `yaml:"telegram"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Catalog struct {
		Source string `yaml:"source" env:"CATALOG_SOURCE"`
		Path   string `yaml:"path" env:"CATALOG_PATH"`
		ID     string `yaml:"id" env:"CATALOG_ID"`
	} `yaml:"catalog"`
	Sessions struct {
		CompletedGrace string `yaml:"completed_grace"`
		IdleTimeout    string `yaml:"idle_timeout"`
		SweepInterval  string `yaml:"sweep_interval"`
	} `yaml:"sessions"`
	Assets struct {
		ImagesDir string `yaml:"images_dir" env:"IMAGES_DIR"`
	} `yaml:"assets"`
	Telemetry struct {
		Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	} `yaml:"telemetry"`
}

// Load reads YAML config from path, then applies environment overrides. A .env file in the
// working directory is loaded first; neither file has to exist.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 60
	}
	if c.Telegram.SkipPending == nil {
		skip := true
		c.Telegram.SkipPending = &skip
	}
	if c.Telegram.GuardianshipURL == "" {
		c.Telegram.GuardianshipURL = DefaultGuardianshipURL
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = CatalogBuiltin
		if c.Catalog.Path != "" {
			c.Catalog.Source = CatalogFile
		}
	}
	if c.Assets.ImagesDir == "" {
		c.Assets.ImagesDir = "images"
	}
}

func (c *Config) validate() error {
	switch c.Catalog.Source {
	case CatalogBuiltin:
	case CatalogFile:
		if c.Catalog.Path == "" {
			return errors.New("catalog.path is required for the file source")
		}
	case CatalogPostgres:
		if c.Postgres.URL == "" {
			return errors.New("postgres.url is required for the postgres catalog source")
		}
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
