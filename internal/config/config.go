// Package config handles exporter configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Output format names.
const (
	FormatJSON = "json"
	FormatAMF  = "amf"
)

// Texture image encodings.
const (
	TexturePNG  = "png"
	TextureBMP  = "bmp"
	TextureTIFF = "tiff"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Naming  NamingConfig  `yaml:"naming"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	OutputDir     string   `yaml:"output_dir"`
	Formats       []string `yaml:"formats"`        // any of json, amf
	TextureFormat string   `yaml:"texture_format"` // png, bmp or tiff
	Indent        int      `yaml:"indent"`         // JSON spaces per level
	Workers       int      `yaml:"workers"`        // batch concurrency, 0 = NumCPU
}

// NamingConfig holds the frame name markers.
type NamingConfig struct {
	LODMarker    string `yaml:"lod_marker"`
	DamageMarker string `yaml:"damage_marker"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			OutputDir:     "out",
			Formats:       []string{FormatJSON, FormatAMF},
			TextureFormat: TexturePNG,
			Indent:        4,
			Workers:       0,
		},
		Naming: NamingConfig{
			LODMarker:    "_vlo",
			DamageMarker: "_dam",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// WorkerCount returns the effective batch concurrency.
func (c *Config) WorkerCount() int {
	if c.Export.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Export.Workers
}

// WantsFormat reports whether the named model format is enabled.
func (c *Config) WantsFormat(name string) bool {
	for _, f := range c.Export.Formats {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// Validate checks values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	if len(c.Export.Formats) == 0 {
		return fmt.Errorf("%w: export.formats is empty", ErrInvalidConfig)
	}
	for _, f := range c.Export.Formats {
		switch strings.ToLower(f) {
		case FormatJSON, FormatAMF:
		default:
			return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, f)
		}
	}
	switch strings.ToLower(c.Export.TextureFormat) {
	case TexturePNG, TextureBMP, TextureTIFF:
	default:
		return fmt.Errorf("%w: unknown texture format %q", ErrInvalidConfig, c.Export.TextureFormat)
	}
	if c.Export.Indent < 0 {
		return fmt.Errorf("%w: negative indent %d", ErrInvalidConfig, c.Export.Indent)
	}
	return nil
}
