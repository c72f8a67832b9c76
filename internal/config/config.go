package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	production "isolar-cloud/internal/production/domain"
)

// KafkaConfig configures the production event writer.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config defines service configuration.
type Config struct {
	HTTPAddr       string              `yaml:"http_addr"`
	DatabaseURL    string              `yaml:"database_url"`
	JWTSecret      string              `yaml:"-"`
	TenantID       string              `yaml:"tenant_id"`
	MaxUploadMB    int                 `yaml:"max_upload_mb"`
	XLSXMode       string              `yaml:"xlsx_mode"`
	Timezone       string              `yaml:"timezone"`
	PeriodMaxDays  int                 `yaml:"period_max_days"`
	HeaderSynonyms map[string][]string `yaml:"header_synonyms"`
	Kafka          KafkaConfig         `yaml:"kafka"`
	CORS           CORSConfig          `yaml:"cors"`
}

// Load reads configuration from the environment, then overlays the YAML file
// named by ISOLAR_CONFIG when set.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:      getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:   getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		JWTSecret:     getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		TenantID:      getenvDefault("TENANT_ID", "tenant-default"),
		MaxUploadMB:   getenvIntDefault("MAX_UPLOAD_MB", 50),
		XLSXMode:      getenvDefault("XLSX_MODE", "stream"),
		Timezone:      getenvDefault("TIMEZONE", ""),
		PeriodMaxDays: getenvIntDefault("PERIOD_MAX_DAYS", 31),
		Kafka: KafkaConfig{
			Brokers: splitCSV(getenvDefault("KAFKA_BROKERS", "")),
			Topic:   getenvDefault("KAFKA_TOPIC", "production.parsed"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenvDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		},
	}

	if path := os.Getenv("ISOLAR_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.MaxUploadMB <= 0 {
		return errors.New("config: max_upload_mb must be positive")
	}
	if c.PeriodMaxDays <= 0 {
		return errors.New("config: period_max_days must be positive")
	}
	switch c.XLSXMode {
	case "stream", "memory", production.FormatXLSX, production.FormatXLSXStream:
	default:
		return fmt.Errorf("config: unknown xlsx_mode %q", c.XLSXMode)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	_, err := c.HeaderRules()
	return err
}

// Location resolves the configured time zone; empty means local time.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// MaxUploadBytes returns the upload size limit.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// HeaderRules converts header_synonyms into extra header rules. Keys are role
// names: timestamp, cumulative_yield, device_id, site_name.
func (c Config) HeaderRules() ([]production.HeaderRule, error) {
	if len(c.HeaderSynonyms) == 0 {
		return nil, nil
	}
	synonyms := make(map[production.Role][]string, len(c.HeaderSynonyms))
	for key, words := range c.HeaderSynonyms {
		role, ok := roleByName[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return nil, fmt.Errorf("config: unknown header role %q", key)
		}
		synonyms[role] = append(synonyms[role], words...)
	}
	return production.SynonymRules(synonyms), nil
}

var roleByName = map[string]production.Role{
	"timestamp":        production.RoleTimestamp,
	"cumulative_yield": production.RoleCumulativeYield,
	"device_id":        production.RoleDeviceID,
	"site_name":        production.RoleSiteName,
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
