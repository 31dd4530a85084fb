package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved hivectl configuration.
type Config struct {
	Files       []string `mapstructure:"file"`
	Sets        []string `mapstructure:"set"`
	LogLevel    string   `mapstructure:"log-level"`
	LogFormat   string   `mapstructure:"log-format"`
	Declarative bool     `mapstructure:"declarative"`
	Trace       bool     `mapstructure:"trace"`
}

// loadConfig merges flags, HIVECTL_* environment variables and an optional
// hivectl.yaml in the working directory. The config file may carry a
// "values" section that is loaded into the tree after the files.
func loadConfig(v *viper.Viper, cmd *cobra.Command, configFile string) (Config, error) {
	v.SetDefault("log-level", "warn")
	v.SetDefault("log-format", "text")

	v.SetEnvPrefix("HIVECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("hivectl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("unknown log format %q (want text or json)", cfg.LogFormat)
	}
	return cfg, nil
}
