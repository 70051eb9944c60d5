// Package config loads the application configuration from YAML with
// defaults and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mountaincenter/dash-plotly/internal/domain"
	"github.com/mountaincenter/dash-plotly/internal/merge"
)

var validate = validator.New()

// Band is one configured action classification band.
type Band struct {
	Action string   `yaml:"action" validate:"required,oneof=buy hold sell"`
	Upper  *float64 `yaml:"upper"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	} `yaml:"log"`

	Schedule struct {
		Timezone     string        `yaml:"timezone" default:"Asia/Tokyo"`
		RefreshStart time.Duration `yaml:"refresh_start" default:"13h"`
		RefreshEnd   time.Duration `yaml:"refresh_end" default:"16h"`
		SelectStart  time.Duration `yaml:"select_start" default:"22h"`
		SelectEnd    time.Duration `yaml:"select_end" default:"26h"`
		SkipDates    []domain.Date `yaml:"skip_dates"`
	} `yaml:"schedule"`

	Calendar struct {
		Endpoint string        `yaml:"endpoint" validate:"required,url"`
		Token    string        `yaml:"token"`
		Timeout  time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"calendar"`

	MarketData struct {
		Endpoint     string        `yaml:"endpoint" validate:"required,url"`
		MetaEndpoint string        `yaml:"meta_endpoint" validate:"required,url"`
		Period       string        `yaml:"period" default:"3mo"`
		Interval     string        `yaml:"interval" default:"1d"`
		Workers      int           `yaml:"workers" default:"8" validate:"gte=1,lte=64"`
		MaxRetries   int           `yaml:"max_retries" default:"3" validate:"gte=0"`
		RetryDelay   time.Duration `yaml:"retry_delay" default:"500ms"`
		UnitTimeout  time.Duration `yaml:"unit_timeout" default:"30s"`
	} `yaml:"market_data"`

	Scoring struct {
		Endpoint string        `yaml:"endpoint"`
		Timeout  time.Duration `yaml:"timeout" default:"120s"`
	} `yaml:"scoring"`

	// Bands override the built-in action thresholds when present. Bands
	// are ordered; a band without an upper bound is unbounded above.
	Bands []Band `yaml:"bands" validate:"omitempty,dive"`

	ObjectStore struct {
		Bucket        string `yaml:"bucket" validate:"required"`
		Region        string `yaml:"region" default:"ap-northeast-1"`
		MutablePrefix string `yaml:"mutable_prefix" default:"parquet/"`
	} `yaml:"object_store"`

	Postgres struct {
		DSN string `yaml:"dsn" validate:"required"`
	} `yaml:"postgres"`

	ClickHouse struct {
		DSN string `yaml:"dsn" validate:"required"`
	} `yaml:"clickhouse"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"false"`
		Addr    string `yaml:"addr" default:":9090"`
	} `yaml:"metrics"`
}

// Load reads a YAML configuration file, applies defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	applyEnv(&c)
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// applyEnv overrides the credentials that should not live in the file.
func applyEnv(c *Config) {
	if v := os.Getenv("CALENDAR_TOKEN"); v != "" {
		c.Calendar.Token = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.ClickHouse.DSN = v
	}
	if v := os.Getenv("OBJECT_STORE_BUCKET"); v != "" {
		c.ObjectStore.Bucket = v
	}
}

// ActionBands converts the configured bands, falling back to the engine
// defaults when none are configured.
func (c *Config) ActionBands() merge.ActionBands {
	if len(c.Bands) == 0 {
		return merge.DefaultBands()
	}
	bands := make(merge.ActionBands, 0, len(c.Bands))
	for _, b := range c.Bands {
		bands = append(bands, merge.Band{
			Action: domain.Action(b.Action),
			Upper:  b.Upper,
		})
	}
	return bands
}

// Location resolves the configured schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Schedule.Timezone, err)
	}
	return loc, nil
}
