package seed

import (
	"fmt"
	"strconv"
	"strings"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	DatabasePath    string
	SchemaFile      string
	SchemaObjectKey string
	Students        int
	Seed            int64
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "examlens-demo.db",
		SchemaFile:   "examlens-demo-schema.yaml",
		Students:     120,
		Seed:         45,
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	applyString(lookup, "EXAMLENS_DEMO_DB_PATH", &cfg.DatabasePath)
	applyString(lookup, "EXAMLENS_DEMO_SCHEMA_FILE", &cfg.SchemaFile)
	applyString(lookup, "EXAMLENS_DEMO_SCHEMA_OBJECT", &cfg.SchemaObjectKey)
	if err := applyInt(lookup, "EXAMLENS_DEMO_STUDENTS", &cfg.Students); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "EXAMLENS_DEMO_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}

	if cfg.DatabasePath == "" {
		return Config{}, fmt.Errorf("EXAMLENS_DEMO_DB_PATH is required")
	}
	if cfg.Students <= 0 {
		return Config{}, fmt.Errorf("EXAMLENS_DEMO_STUDENTS must be > 0")
	}
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) {
	if raw, ok := lookup(key); ok {
		*dst = strings.TrimSpace(raw)
	}
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
