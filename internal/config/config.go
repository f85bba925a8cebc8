package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config application configuration structure
type Config struct {
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Dispatch DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	History  HistoryConfig  `yaml:"history" mapstructure:"history"`
}

// StorageConfig locates saved request records
type StorageConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
	// StrictNamespaces rejects namespaces with relative or empty segments
	StrictNamespaces bool `yaml:"strict_namespaces" mapstructure:"strict_namespaces"`
}

// DispatchConfig HTTP client configuration
type DispatchConfig struct {
	Timeout               int    `yaml:"timeout" mapstructure:"timeout"`
	MaxRedirects          int    `yaml:"max_redirects" mapstructure:"max_redirects"`
	TLSInsecureSkipVerify bool   `yaml:"tls_insecure_skip_verify" mapstructure:"tls_insecure_skip_verify"`
	UserAgent             string `yaml:"user_agent" mapstructure:"user_agent"`
}

// LogConfig log configuration
type LogConfig struct {
	Level       string        `yaml:"level" mapstructure:"level"`
	FileLogging FileLogConfig `yaml:"file_logging" mapstructure:"file_logging"`
}

// FileLogConfig file log configuration
type FileLogConfig struct {
	Enable     bool   `yaml:"enable" mapstructure:"enable"`
	Path       string `yaml:"path" mapstructure:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// OutputConfig controls CLI output style
type OutputConfig struct {
	Mode           string         `yaml:"mode" mapstructure:"mode"`
	IncludeHeaders bool           `yaml:"include_headers" mapstructure:"include_headers"`
	Spinner        bool           `yaml:"spinner" mapstructure:"spinner"`
	BodyView       BodyViewConfig `yaml:"body_view" mapstructure:"body_view"`
}

// BodyViewConfig controls response body formatting
type BodyViewConfig struct {
	Enable          bool           `yaml:"enable" mapstructure:"enable"`
	MaxPreviewBytes int            `yaml:"max_preview_bytes" mapstructure:"max_preview_bytes"`
	Json            JSONViewConfig `yaml:"json" mapstructure:"json"`
	Form            FormViewConfig `yaml:"form" mapstructure:"form"`
	XML             XMLViewConfig  `yaml:"xml" mapstructure:"xml"`
	HTML            HTMLViewConfig `yaml:"html" mapstructure:"html"`
}

// JSONViewConfig JSON display options
type JSONViewConfig struct {
	Enable         bool `yaml:"enable" mapstructure:"enable"`
	Pretty         bool `yaml:"pretty" mapstructure:"pretty"`
	MaxIndentBytes int  `yaml:"max_indent_bytes" mapstructure:"max_indent_bytes"`
}

// FormViewConfig form display options
type FormViewConfig struct {
	Enable bool `yaml:"enable" mapstructure:"enable"`
}

// XMLViewConfig XML display options
type XMLViewConfig struct {
	Enable       bool `yaml:"enable" mapstructure:"enable"`
	Pretty       bool `yaml:"pretty" mapstructure:"pretty"`
	StripControl bool `yaml:"strip_control" mapstructure:"strip_control"`
}

// HTMLViewConfig HTML display options
type HTMLViewConfig struct {
	Enable       bool `yaml:"enable" mapstructure:"enable"`
	Pretty       bool `yaml:"pretty" mapstructure:"pretty"`
	StripControl bool `yaml:"strip_control" mapstructure:"strip_control"`
}

// HistoryConfig request history persistence
type HistoryConfig struct {
	Enable     bool          `yaml:"enable" mapstructure:"enable"`
	Path       string        `yaml:"path" mapstructure:"path"`
	MaxRecords int           `yaml:"max_records" mapstructure:"max_records"`
	Retention  time.Duration `yaml:"retention" mapstructure:"retention"`
}

// LoadConfig load configuration
// If v is nil, a new viper instance will be created
func LoadConfig(configPath string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	// A missing .env is normal; a malformed one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	setDefaults(v)

	v.SetEnvPrefix("REQSTASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/reqstash")
		v.AddConfigPath("/etc/reqstash")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	applyDefaults(&config, v)

	return &config, nil
}

// ConfigFileUsed reports the file viper read, if any.
func ConfigFileUsed(v *viper.Viper) string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// applyDefaults fills zero-value fields that Unmarshal leaves untouched and
// expands "~" in paths. Command line flags are applied by the caller afterwards.
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = v.GetString("storage.root")
	}
	cfg.Storage.StrictNamespaces = v.GetBool("storage.strict_namespaces")
	cfg.Storage.Root = expandHome(cfg.Storage.Root)

	if cfg.Dispatch.Timeout == 0 {
		cfg.Dispatch.Timeout = v.GetInt("dispatch.timeout")
	}
	if cfg.Dispatch.MaxRedirects == 0 {
		cfg.Dispatch.MaxRedirects = v.GetInt("dispatch.max_redirects")
	}
	if cfg.Dispatch.UserAgent == "" {
		cfg.Dispatch.UserAgent = v.GetString("dispatch.user_agent")
	}
	cfg.Dispatch.TLSInsecureSkipVerify = v.GetBool("dispatch.tls_insecure_skip_verify")

	if cfg.Log.Level == "" {
		cfg.Log.Level = v.GetString("log.level")
	}
	cfg.Log.FileLogging.Enable = v.GetBool("log.file_logging.enable")
	cfg.Log.FileLogging.Compress = v.GetBool("log.file_logging.compress")
	if cfg.Log.FileLogging.Path == "" {
		cfg.Log.FileLogging.Path = v.GetString("log.file_logging.path")
	}
	cfg.Log.FileLogging.Path = expandHome(cfg.Log.FileLogging.Path)
	if cfg.Log.FileLogging.MaxSizeMB == 0 {
		cfg.Log.FileLogging.MaxSizeMB = v.GetInt("log.file_logging.max_size_mb")
	}
	if cfg.Log.FileLogging.MaxBackups == 0 {
		cfg.Log.FileLogging.MaxBackups = v.GetInt("log.file_logging.max_backups")
	}
	if cfg.Log.FileLogging.MaxAgeDays == 0 {
		cfg.Log.FileLogging.MaxAgeDays = v.GetInt("log.file_logging.max_age_days")
	}

	if cfg.Output.Mode == "" {
		cfg.Output.Mode = v.GetString("output.mode")
	}
	cfg.Output.IncludeHeaders = v.GetBool("output.include_headers")
	cfg.Output.Spinner = v.GetBool("output.spinner")
	cfg.Output.BodyView.Enable = v.GetBool("output.body_view.enable")
	if cfg.Output.BodyView.MaxPreviewBytes == 0 {
		cfg.Output.BodyView.MaxPreviewBytes = v.GetInt("output.body_view.max_preview_bytes")
	}
	cfg.Output.BodyView.Json.Enable = v.GetBool("output.body_view.json.enable")
	cfg.Output.BodyView.Json.Pretty = v.GetBool("output.body_view.json.pretty")
	if cfg.Output.BodyView.Json.MaxIndentBytes == 0 {
		cfg.Output.BodyView.Json.MaxIndentBytes = v.GetInt("output.body_view.json.max_indent_bytes")
	}
	cfg.Output.BodyView.Form.Enable = v.GetBool("output.body_view.form.enable")
	cfg.Output.BodyView.XML.Enable = v.GetBool("output.body_view.xml.enable")
	cfg.Output.BodyView.XML.Pretty = v.GetBool("output.body_view.xml.pretty")
	cfg.Output.BodyView.XML.StripControl = v.GetBool("output.body_view.xml.strip_control")
	cfg.Output.BodyView.HTML.Enable = v.GetBool("output.body_view.html.enable")
	cfg.Output.BodyView.HTML.Pretty = v.GetBool("output.body_view.html.pretty")
	cfg.Output.BodyView.HTML.StripControl = v.GetBool("output.body_view.html.strip_control")

	cfg.History.Enable = v.GetBool("history.enable")
	if cfg.History.Path == "" {
		cfg.History.Path = v.GetString("history.path")
	}
	cfg.History.Path = expandHome(cfg.History.Path)
	if cfg.History.MaxRecords == 0 {
		cfg.History.MaxRecords = v.GetInt("history.max_records")
	}
	if cfg.History.Retention == 0 {
		if retention, err := time.ParseDuration(v.GetString("history.retention")); err == nil {
			cfg.History.Retention = retention
		}
	}
}

// setDefaults set default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.root", "~/.reqstash")
	v.SetDefault("storage.strict_namespaces", true)

	v.SetDefault("dispatch.timeout", 30)
	v.SetDefault("dispatch.max_redirects", 10)
	v.SetDefault("dispatch.tls_insecure_skip_verify", false)
	v.SetDefault("dispatch.user_agent", "reqstash")

	// CLI output owns stdout, keep the log quiet unless asked
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file_logging.enable", false)
	v.SetDefault("log.file_logging.path", "~/.reqstash.log")
	v.SetDefault("log.file_logging.max_size_mb", 10)
	v.SetDefault("log.file_logging.max_backups", 3)
	v.SetDefault("log.file_logging.max_age_days", 30)
	v.SetDefault("log.file_logging.compress", true)

	v.SetDefault("output.mode", "console")
	v.SetDefault("output.include_headers", false)
	v.SetDefault("output.spinner", true)
	v.SetDefault("output.body_view.enable", true)
	v.SetDefault("output.body_view.max_preview_bytes", 0)
	v.SetDefault("output.body_view.json.enable", true)
	v.SetDefault("output.body_view.json.pretty", true)
	v.SetDefault("output.body_view.json.max_indent_bytes", int(256*1024))
	v.SetDefault("output.body_view.form.enable", true)
	v.SetDefault("output.body_view.xml.enable", true)
	v.SetDefault("output.body_view.xml.pretty", true)
	v.SetDefault("output.body_view.xml.strip_control", true)
	v.SetDefault("output.body_view.html.enable", true)
	v.SetDefault("output.body_view.html.pretty", false)
	v.SetDefault("output.body_view.html.strip_control", true)

	v.SetDefault("history.enable", true)
	v.SetDefault("history.path", defaultHistoryPath())
	v.SetDefault("history.max_records", 1000)
	v.SetDefault("history.retention", "0s")
}

func defaultHistoryPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "reqstash", "history.db")
	}
	return "~/.reqstash-history.db"
}

// validate configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.Root) == "" {
		return fmt.Errorf("storage root cannot be empty")
	}

	if c.Dispatch.Timeout < 0 {
		return fmt.Errorf("dispatch timeout cannot be negative")
	}
	if c.Dispatch.MaxRedirects < 0 {
		return fmt.Errorf("dispatch max redirects cannot be negative")
	}

	switch strings.ToLower(c.Output.Mode) {
	case "", "console", "json":
		if c.Output.Mode == "" {
			c.Output.Mode = "console"
		}
		c.Output.Mode = strings.ToLower(c.Output.Mode)
	default:
		return fmt.Errorf("output mode must be 'console' or 'json'")
	}
	if c.Output.BodyView.MaxPreviewBytes < 0 {
		return fmt.Errorf("output.body_view.max_preview_bytes cannot be negative")
	}
	if c.Output.BodyView.Json.MaxIndentBytes < 0 {
		return fmt.Errorf("output.body_view.json.max_indent_bytes cannot be negative")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.Log.FileLogging.Enable {
		if c.Log.FileLogging.Path == "" {
			return fmt.Errorf("log file path cannot be empty when file logging is enabled")
		}
		if c.Log.FileLogging.MaxSizeMB < 1 {
			return fmt.Errorf("log file max size must be at least 1MB")
		}
		if c.Log.FileLogging.MaxBackups < 0 {
			return fmt.Errorf("log file max backups cannot be negative")
		}
		if c.Log.FileLogging.MaxAgeDays < 0 {
			return fmt.Errorf("log file max age cannot be negative")
		}
	}

	if c.History.Enable && strings.TrimSpace(c.History.Path) == "" {
		return fmt.Errorf("history path cannot be empty when history is enabled")
	}
	if c.History.MaxRecords < 0 {
		return fmt.Errorf("history max_records cannot be negative")
	}
	if c.History.Retention < 0 {
		return fmt.Errorf("history retention cannot be negative")
	}

	return nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}
