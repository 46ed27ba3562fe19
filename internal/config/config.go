// Package config provides configuration management for cvaforms.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. CVAFORMS_LISTEN_ADDR
const EnvPrefix = "CVAFORMS"

// Config holds all configuration settings for cvaforms.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// PDFPath is the blank source form, a local path or an http(s) URL
	PDFPath string

	// FontPath is the TrueType font embedded into exports
	FontPath string

	// FieldsPath is the field definitions file (.json, .yaml or .yml)
	FieldsPath string

	// SessionsFile is where sessions and their values are persisted
	SessionsFile string

	// RasterScale is the pixels-per-point factor used when flattening pages
	RasterScale float64

	// RasterMaxPixels caps width*height of one rendered page (0 = no cap)
	RasterMaxPixels int

	// ProbeTimeout bounds each asset probe and fetch
	ProbeTimeout time.Duration

	// ListenAddr is the HTTP address for serve
	ListenAddr string

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat is console or json
	LogFormat string

	// UnidocLicenseKey is the metered key unipdf needs for rendering
	UnidocLicenseKey string
}

// Load reads configuration from multiple sources and returns a Config instance.
// flags may be nil; when set, every flag is bound under its own name.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".cvaforms")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// unipdf's own variable is honoured when ours is unset
	_ = v.BindEnv("unidoc-license-key", EnvPrefix+"_UNIDOC_LICENSE_KEY", "UNIDOC_LICENSE_API_KEY")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	config := &Config{
		PDFPath:          v.GetString("pdf-path"),
		FontPath:         v.GetString("font-path"),
		FieldsPath:       v.GetString("fields-path"),
		SessionsFile:     v.GetString("sessions-file"),
		RasterScale:      v.GetFloat64("raster-scale"),
		RasterMaxPixels:  v.GetInt("raster-max-pixels"),
		ProbeTimeout:     v.GetDuration("probe-timeout"),
		ListenAddr:       v.GetString("listen-addr"),
		LogLevel:         v.GetString("log-level"),
		LogFormat:        v.GetString("log-format"),
		UnidocLicenseKey: v.GetString("unidoc-license-key"),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("pdf-path", filepath.Join("assets", "cva.pdf"))
	v.SetDefault("font-path", filepath.Join("assets", "msjh.ttf"))
	v.SetDefault("fields-path", filepath.Join("fields", "fields.json"))
	v.SetDefault("sessions-file", filepath.Join(home, ".cvaforms", "sessions.json"))
	v.SetDefault("raster-scale", 2.2)
	v.SetDefault("raster-max-pixels", 40_000_000)
	v.SetDefault("probe-timeout", 10*time.Second)
	v.SetDefault("listen-addr", ":8080")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("unidoc-license-key", "")
}

// Validate checks that the configuration is valid and expands ~/ in local paths
func (c *Config) Validate() error {
	for _, p := range []struct {
		name string
		val  *string
	}{
		{"pdf-path", &c.PDFPath},
		{"font-path", &c.FontPath},
		{"fields-path", &c.FieldsPath},
		{"sessions-file", &c.SessionsFile},
	} {
		if *p.val == "" {
			return fmt.Errorf("%s cannot be empty", p.name)
		}
		expanded, err := expandHome(*p.val)
		if err != nil {
			return fmt.Errorf("failed to expand home directory in %s: %w", p.name, err)
		}
		*p.val = expanded
	}

	if c.RasterScale <= 0 || c.RasterScale > 10 {
		return fmt.Errorf("raster-scale must be in (0, 10], got %g", c.RasterScale)
	}
	if c.RasterMaxPixels < 0 {
		return fmt.Errorf("raster-max-pixels must be non-negative, got %d", c.RasterMaxPixels)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe-timeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen-addr cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
		c.LogFormat = strings.ToLower(c.LogFormat)
	default:
		return fmt.Errorf("invalid log-format %q, must be console or json", c.LogFormat)
	}

	return nil
}

// expandHome rewrites a leading ~/ to the user's home directory. URLs pass through.
func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[2:]), nil
}

// String returns a string representation of the configuration (with sensitive data redacted)
func (c *Config) String() string {
	key := "not set"
	if c.UnidocLicenseKey != "" {
		if len(c.UnidocLicenseKey) > 8 {
			key = "***" + c.UnidocLicenseKey[len(c.UnidocLicenseKey)-4:]
		} else {
			key = "***"
		}
	}

	return fmt.Sprintf(`Configuration:
  PDFPath: %s
  FontPath: %s
  FieldsPath: %s
  SessionsFile: %s
  RasterScale: %.2f
  RasterMaxPixels: %d
  ProbeTimeout: %s
  ListenAddr: %s
  LogLevel: %s
  LogFormat: %s
  UnidocLicenseKey: %s`,
		c.PDFPath,
		c.FontPath,
		c.FieldsPath,
		c.SessionsFile,
		c.RasterScale,
		c.RasterMaxPixels,
		c.ProbeTimeout,
		c.ListenAddr,
		c.LogLevel,
		c.LogFormat,
		key,
	)
}
