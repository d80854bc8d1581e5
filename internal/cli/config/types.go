// Package config provides configuration management for the flowdoc CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	Verbose      bool         `koanf:"verbose"`
	OutputFormat string       `koanf:"output" validate:"oneof=auto text markdown json"`
	LogLevel     string       `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat    string       `koanf:"log_format" validate:"oneof=text json"`
	Report       ReportConfig `koanf:"report"`
	Server       ServerConfig `koanf:"server"`
	Doctor       DoctorConfig `koanf:"doctor"`
}

// ReportConfig controls workbook generation.
type ReportConfig struct {
	IndexSheet  string `koanf:"index_sheet" validate:"required,sheetname"`
	LinkText    string `koanf:"link_text" validate:"required"`
	Concurrency int    `koanf:"concurrency" validate:"min=1,max=64"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Port        int `koanf:"port" validate:"min=1,max=65535"`
	MaxUploadMB int `koanf:"max_upload_mb" validate:"min=1,max=1024"`
}

// DoctorConfig controls the flow health check.
type DoctorConfig struct {
	DisabledRules []string `koanf:"disabled_rules"`
}

// Default configuration values.
const (
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
	DefaultIndexSheet  = "Index"
	DefaultLinkText    = "Go to sheet"
	DefaultConcurrency = 4
	DefaultPort        = 8080
	DefaultMaxUploadMB = 32

	EnvPrefix = "FLOWDOC_"
)

// ConfigFileNames are searched in the working directory, in order.
var ConfigFileNames = []string{"flowdoc.yaml", "flowdoc.yml"}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		Report: ReportConfig{
			IndexSheet:  DefaultIndexSheet,
			LinkText:    DefaultLinkText,
			Concurrency: DefaultConcurrency,
		},
		Server: ServerConfig{
			Port:        DefaultPort,
			MaxUploadMB: DefaultMaxUploadMB,
		},
	}
}

func defaultsMap() map[string]any {
	d := Default()
	return map[string]any{
		"verbose":              d.Verbose,
		"output":               d.OutputFormat,
		"log_level":            d.LogLevel,
		"log_format":           d.LogFormat,
		"report.index_sheet":   d.Report.IndexSheet,
		"report.link_text":     d.Report.LinkText,
		"report.concurrency":   d.Report.Concurrency,
		"server.port":          d.Server.Port,
		"server.max_upload_mb": d.Server.MaxUploadMB,
	}
}
