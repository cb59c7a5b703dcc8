package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configData Config
	v          *viper.Viper
)

// Config holds all configuration settings.
type Config struct {
	// Adapter module search
	Adapter struct {
		SearchPaths []string `mapstructure:"search_paths"`
		LegacyPaths []string `mapstructure:"legacy_paths"`
	}
	// Hardware configuration file
	Hardware struct {
		Config string
		Watch  bool
	}
	// Device polling
	Core struct {
		PollingInterval time.Duration `mapstructure:"polling_interval"`
		Timeout         time.Duration
	}
	// Control server
	Server struct {
		Host string
		Port int
	}
	// Logging configuration
	Log struct {
		Level  string
		Format string
	}
}

// DefaultLegacyPaths are searched for adapter modules after the configured
// paths.
var DefaultLegacyPaths = []string{"/usr/local/lib/micro-manager", "/usr/lib/micro-manager"}

const defaultConfig = `# go_devcore configuration
adapter:
  search_paths:
    - adapters

hardware:
  config: ""
  watch: false

core:
  polling_interval: 10ms
  timeout: 5s

server:
  host: localhost
  port: 1600

log:
  level: info
  format: human
`

// Initialize sets up the configuration system. configFile, when not empty,
// replaces the search for config.yaml.
func Initialize(configFile string) error {
	v = viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.go_devcore")
		v.AddConfigPath("/etc/go_devcore/")
	}

	setDefaults()

	v.SetEnvPrefix("DEVCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		if err := ensureConfig(); err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Defaults apply when no config file is found.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&configData); err != nil {
		return fmt.Errorf("unable to decode into config struct: %w", err)
	}

	return nil
}

// BindFlags binds command-line flags to configuration keys and decodes the
// configuration again. Flags set on the command line win over the file and
// the environment. Nil flags are skipped.
func BindFlags(flags map[string]*pflag.Flag) error {
	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag.Name, err)
		}
	}

	if err := v.Unmarshal(&configData); err != nil {
		return fmt.Errorf("unable to decode into config struct: %w", err)
	}

	return nil
}

// setDefaults sets default values for all configuration options.
func setDefaults() {
	v.SetDefault("adapter.search_paths", []string{"adapters"})
	v.SetDefault("adapter.legacy_paths", DefaultLegacyPaths)

	v.SetDefault("hardware.config", "")
	v.SetDefault("hardware.watch", false)

	v.SetDefault("core.polling_interval", 10*time.Millisecond)
	v.SetDefault("core.timeout", 5*time.Second)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 1600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "human")
}

// ensureConfig writes a default config file under $HOME/.go_devcore if
// there is none. Without a home directory nothing is written.
func ensureConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil //nolint:nilerr // no home, defaults only
	}

	dir := filepath.Join(home, ".go_devcore")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := os.WriteFile(configFile, []byte(defaultConfig), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// Get returns the current configuration.
func Get() *Config {
	return &configData
}

// GetViper returns the viper instance.
func GetViper() *viper.Viper {
	return v
}
