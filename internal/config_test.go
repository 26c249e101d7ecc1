package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/lineagemap/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDatasetsConfig_Defaults(t *testing.T) {
	cfg := DatasetsConfig{Path: "./datasets"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Engine != "native" || cfg.Default != "DEFAULT_LINEAGE_MAP" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestDatasetsConfig_InvalidEngine(t *testing.T) {
	cfg := DatasetsConfig{Path: "./datasets", Engine: "spark"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown engine should fail validation")
	}
}

func TestDatasetsConfig_PathRequired(t *testing.T) {
	cfg := DatasetsConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty path should fail validation")
	}
}

func TestLineageConfig_Policies(t *testing.T) {
	valid := []LineageConfig{
		{},
		{VisitPolicy: "per_direction", UnresolvedPolicy: "skip"},
		{VisitPolicy: "shared", UnresolvedPolicy: "fail", Strict: true},
	}
	for _, cfg := range valid {
		if err := cfg.Validate(); err != nil {
			t.Errorf("%+v should pass: %v", cfg, err)
		}
	}

	invalid := []LineageConfig{
		{VisitPolicy: "bfs"},
		{UnresolvedPolicy: "ignore"},
	}
	for _, cfg := range invalid {
		if err := cfg.Validate(); err == nil {
			t.Errorf("%+v should fail", cfg)
		}
	}
}

func TestRateLimitConfig_Negative(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative rate should fail validation")
	}
}

func TestFullConfig_LoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("LINEAGEMAP_TEST_TOKEN", "s3cret")
	yml := `
app:
  log_level: debug
  http:
    port: 9090
sqlite:
  path: ` + filepath.Join(dir, "test.db") + `
datasets:
  path: ./data
  engine: duckdb
lineage:
  visit_policy: per_direction
  unresolved_policy: skip
auth:
  mode: token
  token: ${LINEAGEMAP_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Datasets.Engine != "duckdb" || cfg.Datasets.Default != "DEFAULT_LINEAGE_MAP" || !cfg.Datasets.Watch {
		t.Errorf("datasets = %+v", cfg.Datasets)
	}
	if cfg.Auth.Token != "s3cret" {
		t.Errorf("token = %q, want expanded env value", cfg.Auth.Token)
	}
	if cfg.RateLimit.Burst != 5 {
		t.Errorf("rate limit defaults lost: %+v", cfg.RateLimit)
	}
}
