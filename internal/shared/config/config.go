package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains everything a client needs to reach a platform and run workunits.
type Config struct {
	Server   ServerConfig  `mapstructure:"server" yaml:"server"`
	Auth     AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Clusters []string      `mapstructure:"clusters" yaml:"clusters"`
	WorkDir  string        `mapstructure:"work_dir" yaml:"work_dir"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Debug    bool          `mapstructure:"debug" yaml:"debug"`
	Logging  LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains the ESP server address.
type ServerConfig struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	Protocol    string `mapstructure:"protocol" yaml:"protocol"`
	RequireAuth bool   `mapstructure:"require_auth" yaml:"require_auth"`
}

// AuthConfig contains the credentials used for ESP calls and the ecl tool.
type AuthConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// LoggingConfig contains logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load loads the client configuration from the given path.
// If configPath is empty, it looks for hpcc.yaml in the config/ directory.
// Environment variables with GOHPCC_ prefix override config file values.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8010)
	v.SetDefault("server.protocol", "https")
	v.SetDefault("server.require_auth", true)
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("clusters", []string{"thor"})
	v.SetDefault("work_dir", ".")
	v.SetDefault("timeout", 1200*time.Second)
	v.SetDefault("debug", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("hpcc")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("GOHPCC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Debug {
		cfg.Logging.Level = "debug"
	}

	return &cfg, nil
}

// Validate reports configuration that cannot be used to reach a platform.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return errors.New("server host is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Clusters) == 0 {
		return errors.New("at least one cluster is required")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Auth.Password != "" {
		c.Auth.Password = "******"
	}
	c.Clusters = append([]string(nil), c.Clusters...)
	return c
}
