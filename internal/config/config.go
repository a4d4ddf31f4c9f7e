package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	AI            AIConfig
	Pipeline      PipelineConfig
	Schema        SchemaConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	Dialect         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

type AIConfig struct {
	BaseURL            string
	APIKey             string
	Model              string
	Timeout            time.Duration
	Referer            string
	Title              string
	SynthesisMaxTokens int
	PlannerMaxTokens   int
	NarratorMaxTokens  int
	NarratorTemp       float64
}

type PipelineConfig struct {
	Timeout        time.Duration
	Concurrent     bool
	RedactDBErrors bool
	PreviewRows    int
}

type SchemaConfig struct {
	File      string
	ObjectKey string
}

type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("EXAMLENS_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid EXAMLENS_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	steps := []func() error{
		func() error { return applyString(lookup, "EXAMLENS_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "EXAMLENS_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "EXAMLENS_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "EXAMLENS_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "EXAMLENS_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "EXAMLENS_DB_DRIVER", &cfg.Database.Driver) },
		func() error { return applyString(lookup, "EXAMLENS_DB_DSN", &cfg.Database.DSN) },
		func() error { return applyString(lookup, "EXAMLENS_DB_DIALECT", &cfg.Database.Dialect) },
		func() error { return applyInt(lookup, "EXAMLENS_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns) },
		func() error { return applyInt(lookup, "EXAMLENS_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "EXAMLENS_DB_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "EXAMLENS_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)
		},
		func() error { return applyDuration(lookup, "EXAMLENS_QUERY_TIMEOUT", &cfg.Database.QueryTimeout) },
		func() error { return applyString(lookup, "EXAMLENS_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "EXAMLENS_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "EXAMLENS_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyDuration(lookup, "EXAMLENS_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyString(lookup, "EXAMLENS_AI_REFERER", &cfg.AI.Referer) },
		func() error { return applyString(lookup, "EXAMLENS_AI_TITLE", &cfg.AI.Title) },
		func() error { return applyInt(lookup, "EXAMLENS_AI_SYNTHESIS_MAX_TOKENS", &cfg.AI.SynthesisMaxTokens) },
		func() error { return applyInt(lookup, "EXAMLENS_AI_PLANNER_MAX_TOKENS", &cfg.AI.PlannerMaxTokens) },
		func() error { return applyInt(lookup, "EXAMLENS_AI_NARRATOR_MAX_TOKENS", &cfg.AI.NarratorMaxTokens) },
		func() error { return applyFloat(lookup, "EXAMLENS_AI_NARRATOR_TEMPERATURE", &cfg.AI.NarratorTemp) },
		func() error { return applyDuration(lookup, "EXAMLENS_PIPELINE_TIMEOUT", &cfg.Pipeline.Timeout) },
		func() error { return applyBool(lookup, "EXAMLENS_PIPELINE_CONCURRENT", &cfg.Pipeline.Concurrent) },
		func() error { return applyBool(lookup, "EXAMLENS_REDACT_DB_ERRORS", &cfg.Pipeline.RedactDBErrors) },
		func() error { return applyInt(lookup, "EXAMLENS_PIPELINE_PREVIEW_ROWS", &cfg.Pipeline.PreviewRows) },
		func() error { return applyString(lookup, "EXAMLENS_SCHEMA_FILE", &cfg.Schema.File) },
		func() error { return applyString(lookup, "EXAMLENS_SCHEMA_OBJECT", &cfg.Schema.ObjectKey) },
		func() error { return applyString(lookup, "EXAMLENS_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "EXAMLENS_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "EXAMLENS_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error {
			return applyString(lookup, "EXAMLENS_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID)
		},
		func() error {
			return applyString(lookup, "EXAMLENS_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "EXAMLENS_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "EXAMLENS_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error { return applyBool(lookup, "EXAMLENS_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "EXAMLENS_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Pipeline.PreviewRows <= 0 {
		return Config{}, fmt.Errorf("EXAMLENS_PIPELINE_PREVIEW_ROWS must be > 0")
	}
	if cfg.Schema.ObjectKey != "" && cfg.ObjectStore.Bucket == "" {
		return Config{}, fmt.Errorf("EXAMLENS_SCHEMA_OBJECT requires EXAMLENS_OBJECTSTORE_BUCKET")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "examlens-api"},
		HTTP: HTTPConfig{
			Address:      ":8000",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlserver",
			DSN:             "sqlserver://localhost:1433?database=ITI_Examination_System",
			Dialect:         "",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    30 * time.Second,
		},
		AI: AIConfig{
			BaseURL:            "https://openrouter.ai/api",
			Model:              "meta-llama/llama-4-maverick:free",
			Timeout:            30 * time.Second,
			Referer:            "https://iti-examination-system.com",
			Title:              "ITI Examination System",
			SynthesisMaxTokens: 512,
			PlannerMaxTokens:   256,
			NarratorMaxTokens:  400,
			NarratorTemp:       0.3,
		},
		Pipeline: PipelineConfig{
			Timeout:        90 * time.Second,
			Concurrent:     false,
			RedactDBErrors: false,
			PreviewRows:    3,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint: "localhost:9000",
			Region:   "us-east-1",
			UseSSL:   false,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18000"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Pipeline.RedactDBErrors = true
		cfg.ObjectStore.UseSSL = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
