package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tally/internal/export"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Page formats accepted for export.
var pageFormats = []interface{}{"A3", "A4", "A5", "Letter", "Legal"}

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Export ExportConfig      `yaml:"export"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
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

// ExportConfig controls where and how documents are exported.
type ExportConfig struct {
	// OutputDir receives invoice.pdf and purchase_order.pdf.
	OutputDir string `yaml:"output_dir"`
	// Scale is the capture resolution in device pixels per logical pixel.
	Scale float64 `yaml:"scale"`
	// PageFormat names the physical page whose width the bitmap is fitted to.
	PageFormat string `yaml:"page_format"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.Scale, validation.Required, validation.Min(1.0), validation.Max(4.0)),
		validation.Field(&c.PageFormat, validation.Required, validation.In(pageFormats...)),
	)
}

// Options returns the pipeline options for this configuration.
func (c *ExportConfig) Options(logger *slog.Logger) []export.Option {
	return []export.Option{
		export.WithScale(c.Scale),
		export.WithPageFormat(c.PageFormat),
		export.WithLogger(logger),
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
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
		Export: ExportConfig{
			OutputDir:  "./exports",
			Scale:      export.DefaultScale,
			PageFormat: export.DefaultPageFormat,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
