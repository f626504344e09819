package main

import (
	"errors"
	"strings"

	credstore "github.com/goliatone/go-credstore"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CREDSTORE"

type cliConfig struct {
	Store  credstore.Config `mapstructure:"store"`
	Debug  bool             `mapstructure:"debug"`
	Events bool             `mapstructure:"events"`
}

func globalFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("credstore", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.String("config", "", "path to a YAML config file")
	flags.String("driver", "", "database driver: sqlite or postgres")
	flags.String("dsn", "", "database connection string")
	flags.Int("iterations", 0, "PBKDF2 iteration count")
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("events", false, "log account lifecycle events")
	return flags
}

// loadConfig merges defaults, the optional YAML file, CREDSTORE_* env vars
// and flags, in increasing order of precedence.
func loadConfig(flags *pflag.FlagSet) (*cliConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults := credstore.DefaultConfig()
	v.SetDefault("store.driver", defaults.Driver)
	v.SetDefault("store.dsn", defaults.DSN)
	v.SetDefault("store.iterations", defaults.Iterations)
	v.SetDefault("store.migrate", defaults.Migrate)
	v.SetDefault("store.lastlogin_timeout", defaults.LastLoginTimeout)
	v.SetDefault("debug", false)
	v.SetDefault("events", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"store.driver":     "driver",
		"store.dsn":        "dsn",
		"store.iterations": "iterations",
		"debug":            "debug",
		"events":           "events",
	}
	for key, name := range bindings {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	cfg := &cliConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
