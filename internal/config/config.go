package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	awspkg "ec2ctl/pkg/aws"
	"ec2ctl/pkg/errors"
	"ec2ctl/pkg/logging"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. EC2CTL_POWER_PARALLEL
	EnvPrefix = "EC2CTL"

	// FileName is the config file looked up in the home directory
	FileName = ".ec2ctl.yaml"

	// MaxParallel caps an explicit power.parallel bound
	MaxParallel = 100
)

// Output formats accepted by list.format and ls -o
var OutputFormats = []string{"tsv", "table", "json", "yaml"}

// Config represents the application configuration
type Config struct {
	// Default AWS region. Empty leaves it to the SDK's resolution chain.
	DefaultRegion string `mapstructure:"default_region" yaml:"default_region"`

	// Named profile from the shared config files
	Profile string `mapstructure:"profile" yaml:"profile"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Power   PowerConfig   `mapstructure:"power" yaml:"power"`
	List    ListConfig    `mapstructure:"list" yaml:"list"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	// Log directory path, platform default when empty
	Directory string `mapstructure:"directory" yaml:"directory"`

	// Enable file logging
	FileLogging bool `mapstructure:"file_logging" yaml:"file_logging"`

	// Log level (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`
}

// PowerConfig controls bulk start, stop and reboot
type PowerConfig struct {
	// Maximum concurrent instance operations, 0 for all at once
	Parallel int `mapstructure:"parallel" yaml:"parallel"`

	// Wait for each instance to reach its target state
	Wait bool `mapstructure:"wait" yaml:"wait"`

	// Per-instance wait bound
	WaitTimeout time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
}

// ListConfig controls ls output
type ListConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
}

var (
	// Global configuration instance
	cfg *Config
)

// Init points viper at the config file and environment. An explicit path
// must exist; the default file is optional.
func Init(configFile string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("unable to find home directory: %w", err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configFile == "" {
			logging.LogDebug("No config file found, using defaults")
			return nil
		}
		return errors.NewConfigError("failed to read config file", err)
	}

	logging.LogDebug("Using config file: %s", viper.ConfigFileUsed())
	return nil
}

// Load builds the configuration from defaults, file and environment
func Load() error {
	setDefaults()

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return errors.NewConfigError("failed to unmarshal configuration", err)
	}

	loaded.Logging.Directory = expandPath(loaded.Logging.Directory)
	loaded.List.Format = strings.ToLower(loaded.List.Format)

	if err := Validate(loaded); err != nil {
		return err
	}

	// Shortcodes such as cac1 are stored as full region codes
	region, _ := awspkg.ValidateRegionInput(loaded.DefaultRegion)
	loaded.DefaultRegion = region

	cfg = loaded
	return nil
}

// Get returns the global configuration instance
func Get() *Config {
	if cfg == nil {
		setDefaults()
		cfg = &Config{}
		if err := viper.Unmarshal(cfg); err != nil {
			logging.LogWarn("Falling back to empty configuration: %v", err)
		}
	}
	return cfg
}

// Reset drops the loaded configuration and all viper state
func Reset() {
	cfg = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("default_region", "")
	viper.SetDefault("profile", "")

	viper.SetDefault("logging.directory", "")
	viper.SetDefault("logging.file_logging", false)
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("power.parallel", 0)
	viper.SetDefault("power.wait", true)
	viper.SetDefault("power.wait_timeout", awspkg.DefaultWaitTimeout)

	viper.SetDefault("list.format", "tsv")
}

// Validate checks a configuration for values the commands cannot use
func Validate(c *Config) error {
	if _, err := awspkg.ValidateRegionInput(c.DefaultRegion); err != nil {
		return errors.NewValidationError(fmt.Sprintf("default_region: %v", err))
	}

	if c.Power.Parallel < 0 || c.Power.Parallel > MaxParallel {
		return errors.NewValidationError(fmt.Sprintf("power.parallel must be between 0 and %d, got %d", MaxParallel, c.Power.Parallel))
	}

	if c.Power.WaitTimeout <= 0 {
		return errors.NewValidationError(fmt.Sprintf("power.wait_timeout must be positive, got %v", c.Power.WaitTimeout))
	}

	if !IsOutputFormat(c.List.Format) {
		return errors.NewValidationError(fmt.Sprintf("list.format must be one of %s, got %q", strings.Join(OutputFormats, ", "), c.List.Format))
	}

	if !isLogLevel(c.Logging.Level) {
		return errors.NewValidationError(fmt.Sprintf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level))
	}

	return nil
}

// IsOutputFormat reports whether format is a supported ls output format
func IsOutputFormat(format string) bool {
	for _, f := range OutputFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

func isLogLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ToYAML renders the effective configuration
func (c *Config) ToYAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.NewConfigError("failed to render configuration", err)
	}
	return out, nil
}

// SampleConfig returns the commented file written by config init
func SampleConfig() string {
	return fmt.Sprintf(`# ec2ctl Configuration File

# Default AWS region for operations. Shortcodes such as cac1 or use1 work too.
# Leave empty to use AWS_REGION or the profile's region.
default_region: ""

# Named AWS profile. Leave empty for the default credential chain.
profile: ""

# Logging configuration
logging:
  # Directory for log files (empty uses the platform default)
  directory: ""

  # Enable file logging (in addition to console)
  file_logging: false

  # Log level: debug, info, warn, error
  level: "info"

# Bulk start, stop and reboot
power:
  # Maximum concurrent instance operations (1-%d). 0 starts every
  # request at once before waiting on any of them.
  parallel: 0

  # Wait for each instance to reach its target state
  wait: true

  # How long to wait per instance
  wait_timeout: "%s"

# ls output
list:
  # tsv, table, json or yaml
  format: "tsv"
`, MaxParallel, awspkg.DefaultWaitTimeout)
}

// CreateSampleConfig writes the sample configuration to path.
// An existing file is only replaced when force is set.
func CreateSampleConfig(fs afero.Fs, configPath string, force bool) error {
	exists, err := afero.Exists(fs, configPath)
	if err != nil {
		return errors.NewConfigError("failed to check config file", err)
	}
	if exists && !force {
		return errors.NewValidationError(fmt.Sprintf("configuration file already exists at %s (use --force to overwrite)", configPath))
	}

	if err := fs.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return errors.NewConfigError("failed to create config directory", err)
	}

	if err := afero.WriteFile(fs, configPath, []byte(SampleConfig()), 0600); err != nil {
		return errors.NewConfigError("failed to write sample config", err)
	}

	return nil
}

// DefaultPath returns the default configuration file path
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, FileName)
}

// expandPath expands paths with tilde (~) to the user's home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	return path
}
