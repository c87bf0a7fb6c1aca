package config

import (
	"flag"
	"strings"
)

var (
	flagConfig        = flag.String("config", "", "Path to config file")
	flagDebug         = flag.Bool("debug", false, "Enable debug logging")
	flagWorkers       = flag.Int("workers", 0, "Concurrent conversions in batch mode")
	flagFormat        = flag.String("format", "", "Model formats, comma separated (json,amf)")
	flagTextureFormat = flag.String("texture-format", "", "Texture image format (png, bmp, tiff)")
	flagIndent        = flag.Int("indent", -1, "JSON indent width")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWorkers > 0 {
		cfg.Export.Workers = *flagWorkers
	}
	if *flagFormat != "" {
		var formats []string
		for _, f := range strings.Split(*flagFormat, ",") {
			if f = strings.TrimSpace(f); f != "" {
				formats = append(formats, strings.ToLower(f))
			}
		}
		cfg.Export.Formats = formats
	}
	if *flagTextureFormat != "" {
		cfg.Export.TextureFormat = strings.ToLower(*flagTextureFormat)
	}
	if *flagIndent >= 0 {
		cfg.Export.Indent = *flagIndent
	}
}
