// internal/config/config.go
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Values are resolved by
// viper with the usual precedence: flags, then CORFEX_* environment
// variables, then the config file, then the defaults below.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`
}

// LoggerConfig controls the zap logger and its optional rotated file sink.
type LoggerConfig struct {
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the Chrome process the session drives.
type BrowserConfig struct {
	Headless     bool `mapstructure:"headless" yaml:"headless"`
	WindowWidth  int  `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int  `mapstructure:"window_height" yaml:"window_height"`
}

// AuthConfig controls the login sequence.
type AuthConfig struct {
	// URL is the login entry point.
	URL string `mapstructure:"url" yaml:"url"`
	// WaitTimeout bounds every per-step wait of the login sequence.
	WaitTimeout time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	// PostLoginSettle is the unconditional delay after submitting
	// credentials. The post-auth page assembles asynchronously with no
	// reliable completion signal.
	PostLoginSettle time.Duration `mapstructure:"post_login_settle" yaml:"post_login_settle"`
}

// ExtractConfig controls form extraction and the output artifact.
type ExtractConfig struct {
	// PanelSelector is the CSS query identifying the panel containers
	// holding the form's controls.
	PanelSelector string `mapstructure:"panel_selector" yaml:"panel_selector"`
	// WaitTimeout bounds the wait for the first panel to appear.
	WaitTimeout time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	// InitialSettle is the delay before looking for panels at all, giving
	// the form page time to load its dynamic assets.
	InitialSettle time.Duration `mapstructure:"initial_settle" yaml:"initial_settle"`
	// PanelSettle is the short delay after panels appear, for late ajax
	// content.
	PanelSettle time.Duration `mapstructure:"panel_settle" yaml:"panel_settle"`
	// ExpandTimeout bounds the visibility wait after activating a
	// collapsible-section toggle.
	ExpandTimeout time.Duration `mapstructure:"expand_timeout" yaml:"expand_timeout"`
	// Output is the destination path of the JSON artifact.
	Output string `mapstructure:"output" yaml:"output"`
	// AutoClose tears the browser down on completion instead of waiting
	// for confirmation.
	AutoClose bool `mapstructure:"auto_close" yaml:"auto_close"`
}

// DefaultLoginURL is the production login entry point of the application
// platform.
const DefaultLoginURL = "https://login.corfo.cl/gsi/login/Login.aspx?uid=WEB226&env=produccion-cloud&enforcelogin=1&cid=2629"

// SetDefaults registers the baseline configuration with viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.service_name", "corfex")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)

	v.SetDefault("auth.url", DefaultLoginURL)
	v.SetDefault("auth.wait_timeout", 20*time.Second)
	v.SetDefault("auth.post_login_settle", 15*time.Second)

	v.SetDefault("extract.panel_selector", "div.panel-body")
	v.SetDefault("extract.wait_timeout", 30*time.Second)
	v.SetDefault("extract.initial_settle", 20*time.Second)
	v.SetDefault("extract.panel_settle", time.Second)
	v.SetDefault("extract.expand_timeout", 5*time.Second)
	v.SetDefault("extract.output", "formulario.json")
	v.SetDefault("extract.auto_close", false)
}
