package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lineagemap/internal/api"
	"github.com/starford/lineagemap/internal/dataset"
	"github.com/starford/lineagemap/internal/lineage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Datasets  DatasetsConfig    `yaml:"datasets"`
	Metadata  MetadataConfig    `yaml:"metadata"`
	Lineage   LineageConfig     `yaml:"lineage"`
	Auth      AuthConfig        `yaml:"auth"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Datasets.Validate(); err != nil {
		return err
	}
	if err := c.Lineage.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// DatasetsConfig describes where lineage datasets live and how they are read.
//
// Engine "native" decodes CSV and YAML in-process and uses DuckDB only for
// parquet and JSON; "duckdb" reads CSV through DuckDB as well.
type DatasetsConfig struct {
	Path    string `yaml:"path"`
	Engine  string `yaml:"engine"`
	Default string `yaml:"default"`
	// Watch re-imports a dataset whenever its file changes while serving.
	Watch bool `yaml:"watch"`
}

// Validate validates the datasets configuration.
func (c *DatasetsConfig) Validate() error {
	if c.Engine == "" {
		c.Engine = dataset.EngineNative
	}
	if c.Default == "" {
		c.Default = lineage.DefaultDataset
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Engine, validation.In(dataset.EngineNative, dataset.EngineDuckDB)),
	)
}

// MetadataConfig points at an optional YAML file of metadata entities
// registered at startup.
type MetadataConfig struct {
	SeedFile string `yaml:"seed_file"`
}

// LineageConfig holds the traversal and import policies.
type LineageConfig struct {
	VisitPolicy      string `yaml:"visit_policy"`
	UnresolvedPolicy string `yaml:"unresolved_policy"`
	Strict           bool   `yaml:"strict"`
}

// Validate validates the lineage configuration.
func (c *LineageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.VisitPolicy, validation.In(lineage.VisitPolicies...)),
		validation.Field(&c.UnresolvedPolicy, validation.In(lineage.UnresolvedPolicies...)),
	)
}

// RateLimitConfig throttles lineage imports per client IP. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

func (c *RateLimitConfig) toAPI() api.RateLimitConfig {
	return api.RateLimitConfig{RequestsPerSecond: c.RequestsPerSecond, Burst: c.Burst}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./lineagemap.db",
		},
		Datasets: DatasetsConfig{
			Path:    "./datasets",
			Engine:  dataset.EngineNative,
			Default: lineage.DefaultDataset,
			Watch:   true,
		},
		Lineage: LineageConfig{
			VisitPolicy:      string(lineage.VisitShared),
			UnresolvedPolicy: string(lineage.UnresolvedNull),
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             5,
		},
	}
}
