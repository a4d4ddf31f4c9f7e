package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("examlens-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8000" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.Driver != "sqlserver" {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.QueryTimeout != 30*time.Second {
		t.Fatalf("Database.QueryTimeout = %s", cfg.Database.QueryTimeout)
	}
	if cfg.AI.SynthesisMaxTokens != 512 {
		t.Fatalf("AI.SynthesisMaxTokens = %d", cfg.AI.SynthesisMaxTokens)
	}
	if cfg.Pipeline.PreviewRows != 3 {
		t.Fatalf("Pipeline.PreviewRows = %d", cfg.Pipeline.PreviewRows)
	}
	if cfg.Pipeline.Timeout != 90*time.Second {
		t.Fatalf("Pipeline.Timeout = %s", cfg.Pipeline.Timeout)
	}
	if cfg.Pipeline.RedactDBErrors {
		t.Fatal("Pipeline.RedactDBErrors should default to false in dev")
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("examlens-api", mapLookup(map[string]string{"EXAMLENS_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Pipeline.RedactDBErrors {
		t.Fatal("Pipeline.RedactDBErrors should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"EXAMLENS_PROFILE":                 "test",
		"EXAMLENS_SERVICE_NAME":            "examlens-custom",
		"EXAMLENS_HTTP_ADDR":               ":9999",
		"EXAMLENS_HTTP_READ_TIMEOUT":       "2s",
		"EXAMLENS_LOG_LEVEL":               "error",
		"EXAMLENS_DB_DRIVER":               "pgx",
		"EXAMLENS_DB_DSN":                  "postgres://example",
		"EXAMLENS_DB_DIALECT":              "PostgreSQL",
		"EXAMLENS_DB_MAX_OPEN_CONNS":       "42",
		"EXAMLENS_QUERY_TIMEOUT":           "4s",
		"EXAMLENS_AI_BASE_URL":             "https://api.example.com",
		"EXAMLENS_AI_API_KEY":              "secret-key",
		"EXAMLENS_AI_MODEL":                "gpt-5.2",
		"EXAMLENS_AI_TIMEOUT":              "21s",
		"EXAMLENS_AI_NARRATOR_TEMPERATURE": "0.7",
		"EXAMLENS_PIPELINE_CONCURRENT":     "true",
		"EXAMLENS_PIPELINE_PREVIEW_ROWS":   "5",
		"EXAMLENS_SCHEMA_OBJECT":           "schemas/exam.yaml",
		"EXAMLENS_OBJECTSTORE_BUCKET":      "examlens",
		"EXAMLENS_OBJECTSTORE_PREFIX":      "prod",
	})
	cfg, err := Load("examlens-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "examlens-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.Driver != "pgx" || cfg.Database.DSN != "postgres://example" {
		t.Fatalf("Database = %+v", cfg.Database)
	}
	if cfg.Database.Dialect != "PostgreSQL" {
		t.Fatalf("Database.Dialect = %q", cfg.Database.Dialect)
	}
	if cfg.Database.MaxOpenConns != 42 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.QueryTimeout != 4*time.Second {
		t.Fatalf("Database.QueryTimeout = %s", cfg.Database.QueryTimeout)
	}
	if cfg.AI.BaseURL != "https://api.example.com" || cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI = %+v", cfg.AI)
	}
	if cfg.AI.Model != "gpt-5.2" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.AI.NarratorTemp != 0.7 {
		t.Fatalf("AI.NarratorTemp = %f", cfg.AI.NarratorTemp)
	}
	if !cfg.Pipeline.Concurrent {
		t.Fatal("Pipeline.Concurrent = false, want true")
	}
	if cfg.Pipeline.PreviewRows != 5 {
		t.Fatalf("Pipeline.PreviewRows = %d", cfg.Pipeline.PreviewRows)
	}
	if cfg.Schema.ObjectKey != "schemas/exam.yaml" {
		t.Fatalf("Schema.ObjectKey = %q", cfg.Schema.ObjectKey)
	}
	if cfg.ObjectStore.Bucket != "examlens" || cfg.ObjectStore.Prefix != "prod" {
		t.Fatalf("ObjectStore = %+v", cfg.ObjectStore)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"EXAMLENS_PROFILE": "oops"},
		{"EXAMLENS_HTTP_READ_TIMEOUT": "NaN"},
		{"EXAMLENS_DB_MAX_OPEN_CONNS": "oops"},
		{"EXAMLENS_AI_NARRATOR_TEMPERATURE": "bad"},
		{"EXAMLENS_PIPELINE_CONCURRENT": "not-bool"},
		{"EXAMLENS_PIPELINE_PREVIEW_ROWS": "0"},
		{"EXAMLENS_LOG_LEVEL": "verbose"},
		{"EXAMLENS_SCHEMA_OBJECT": "schema.yaml"},
		{"EXAMLENS_HTTP_ADDR": " "},
	}
	for _, env := range tests {
		_, err := Load("examlens-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
