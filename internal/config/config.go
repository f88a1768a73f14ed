// Package config handles guardian configuration using Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
)

// EnvPrefix is the prefix for environment overrides, e.g. GUARDIAN_APP_URL.
const EnvPrefix = "GUARDIAN"

// Config holds the guardian configuration.
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Runtime        RuntimeConfig        `mapstructure:"runtime"`
	PackageManager PackageManagerConfig `mapstructure:"package_manager"`
	Audit          AuditConfig          `mapstructure:"audit"`
	Supervisor     SupervisorConfig     `mapstructure:"supervisor"`
	Paths          PathsConfig          `mapstructure:"paths"`
	Log            LogConfig            `mapstructure:"log"`
	Prompts        PromptsConfig        `mapstructure:"prompts"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
}

// AppConfig describes the managed application.
type AppConfig struct {
	Name       string `mapstructure:"name"`
	Package    string `mapstructure:"package"`
	Args       string `mapstructure:"args"`
	URL        string `mapstructure:"url"`
	HealthPath string `mapstructure:"health_path"`
	// OnDemandRunner runs a package without a global install, e.g. npx.
	OnDemandRunner string `mapstructure:"on_demand_runner"`
}

// RuntimeConfig describes the language runtime.
type RuntimeConfig struct {
	Command                string `mapstructure:"command"`
	MinMajor               int    `mapstructure:"min_major"`
	DownloadURL            string `mapstructure:"download_url"`
	MaxRemediationAttempts int    `mapstructure:"max_remediation_attempts"`
}

// PackageManagerConfig describes the package manager.
type PackageManagerConfig struct {
	Command     string `mapstructure:"command"`
	RegistryURL string `mapstructure:"registry_url"`
}

// AuditConfig controls the vulnerability scan.
type AuditConfig struct {
	Level string `mapstructure:"level"`
}

// SupervisorConfig holds the supervision timings.
type SupervisorConfig struct {
	FirstGrace   time.Duration `mapstructure:"first_grace"`
	SecondGrace  time.Duration `mapstructure:"second_grace"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Heartbeat    time.Duration `mapstructure:"heartbeat"`
	StopTimeout  time.Duration `mapstructure:"stop_timeout"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	DataDir string `mapstructure:"data_dir"`
	// ExtraDirs are searched before the platform well-known directories.
	ExtraDirs []string `mapstructure:"extra_dirs"`
}

// LogConfig controls the session log.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PromptsConfig controls operator prompts.
type PromptsConfig struct {
	AssumeYes   bool `mapstructure:"assume_yes"`
	Interactive bool `mapstructure:"interactive"`
}

// TelemetryConfig controls OpenTelemetry tracing of a session.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is an OTLP/HTTP collector, host:port. Empty records spans without exporting them.
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// SessionLogPath is the append-only session log.
func (c *Config) SessionLogPath() string {
	return filepath.Join(c.Paths.DataDir, "guardian.log")
}

// SecurityLogPath is the append-only security audit log.
func (c *Config) SecurityLogPath() string {
	return filepath.Join(c.Paths.DataDir, "security_audit.log")
}

// HealthURL joins the application URL and health path.
func (c *Config) HealthURL() string {
	return strings.TrimRight(c.App.URL, "/") + "/" + strings.TrimLeft(c.App.HealthPath, "/")
}

// Load reads configuration from file and environment.
// An empty configPath searches ./guardian.yaml and ~/.guardian/guardian.yaml.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, gerrors.Wrap(gerrors.ErrCodeConfigLoad, "configuration file not readable", err)
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("guardian")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".guardian"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, gerrors.Wrap(gerrors.ErrCodeConfigLoad, "failed to read configuration", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeConfigLoad, "failed to decode configuration", err)
	}

	cfg.Paths.DataDir = expandHome(cfg.Paths.DataDir)
	for i, dir := range cfg.Paths.ExtraDirs {
		cfg.Paths.ExtraDirs[i] = expandHome(dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "n8n")
	v.SetDefault("app.package", "n8n")
	v.SetDefault("app.args", "start")
	v.SetDefault("app.url", "http://localhost:5678")
	v.SetDefault("app.health_path", "/healthz")
	v.SetDefault("app.on_demand_runner", "npx")

	v.SetDefault("runtime.command", "node")
	v.SetDefault("runtime.min_major", 18)
	v.SetDefault("runtime.download_url", "https://nodejs.org/")
	v.SetDefault("runtime.max_remediation_attempts", 3)

	v.SetDefault("package_manager.command", "npm")
	v.SetDefault("package_manager.registry_url", "https://registry.npmjs.org")

	v.SetDefault("audit.level", "moderate")

	v.SetDefault("supervisor.first_grace", 5*time.Second)
	v.SetDefault("supervisor.second_grace", 3*time.Second)
	v.SetDefault("supervisor.poll_interval", 30*time.Second)
	v.SetDefault("supervisor.heartbeat", 5*time.Minute)
	v.SetDefault("supervisor.stop_timeout", 10*time.Second)

	v.SetDefault("paths.data_dir", "./guardian_data")
	v.SetDefault("paths.extra_dirs", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("prompts.assume_yes", false)
	v.SetDefault("prompts.interactive", true)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.sample_rate", 1.0)
}

var auditLevels = map[string]bool{
	"info": true, "low": true, "moderate": true, "high": true, "critical": true,
}

// Validate checks the configuration for values the pipeline cannot work with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.App.Name) == "" {
		problems = append(problems, "app.name must not be empty")
	}
	if strings.TrimSpace(c.App.Package) == "" {
		problems = append(problems, "app.package must not be empty")
	}
	if u, err := url.Parse(c.App.URL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("app.url %q is not an absolute URL", c.App.URL))
	}
	if strings.TrimSpace(c.Runtime.Command) == "" {
		problems = append(problems, "runtime.command must not be empty")
	}
	if c.Runtime.MinMajor < 0 {
		problems = append(problems, "runtime.min_major must not be negative")
	}
	if c.Runtime.MaxRemediationAttempts < 1 {
		problems = append(problems, "runtime.max_remediation_attempts must be at least 1")
	}
	if strings.TrimSpace(c.PackageManager.Command) == "" {
		problems = append(problems, "package_manager.command must not be empty")
	}
	if !auditLevels[strings.ToLower(c.Audit.Level)] {
		problems = append(problems, fmt.Sprintf("audit.level %q is not one of info, low, moderate, high, critical", c.Audit.Level))
	}

	durations := map[string]time.Duration{
		"supervisor.first_grace":   c.Supervisor.FirstGrace,
		"supervisor.second_grace":  c.Supervisor.SecondGrace,
		"supervisor.poll_interval": c.Supervisor.PollInterval,
		"supervisor.heartbeat":     c.Supervisor.Heartbeat,
		"supervisor.stop_timeout":  c.Supervisor.StopTimeout,
	}
	for _, key := range []string{"supervisor.first_grace", "supervisor.second_grace", "supervisor.poll_interval", "supervisor.heartbeat", "supervisor.stop_timeout"} {
		if durations[key] <= 0 {
			problems = append(problems, key+" must be positive")
		}
	}

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		problems = append(problems, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(problems) > 0 {
		return gerrors.NewConfigInvalidError(strings.Join(problems, "; "))
	}
	return nil
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
