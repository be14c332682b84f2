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

// Config is resolved in order: flags, then X_* env vars, then an optional
// config.yaml (cwd or ~/.xbook), then defaults.
type Config struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	When            string `mapstructure:"when"`
	IntervalSeconds int    `mapstructure:"interval"`
	Timezone        string `mapstructure:"timezone"`

	Host  string `mapstructure:"host"`
	TagID int    `mapstructure:"tag_id"`

	JournalURL string `mapstructure:"journal_url"`

	CalendarClientID     string `mapstructure:"calendar_client_id"`
	CalendarClientSecret string `mapstructure:"calendar_client_secret"`
	CalendarTokenFile    string `mapstructure:"calendar_token_file"`
	CalendarID           string `mapstructure:"calendar_id"`

	LogJSON bool `mapstructure:"log_json"`
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c Config) CalendarConfigured() bool {
	return c.CalendarClientID != "" && c.CalendarClientSecret != "" && c.CalendarTokenFile != ""
}

// Load resolves the configuration. flags may be nil; when given, each
// flag binds to the key derived from its name (dashes become
// underscores) and takes precedence when explicitly set.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("when", "4pm tomorrow")
	v.SetDefault("interval", 60)
	v.SetDefault("timezone", "Europe/Amsterdam")
	v.SetDefault("host", "https://backbone-web-api.production.delft.delcom.nl")
	v.SetDefault("tag_id", 28)
	v.SetDefault("journal_url", "")
	v.SetDefault("calendar_client_id", "")
	v.SetDefault("calendar_client_secret", "")
	v.SetDefault("calendar_token_file", "")
	v.SetDefault("calendar_id", "primary")
	v.SetDefault("log_json", false)

	v.SetEnvPrefix("X")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".xbook"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.IntervalSeconds < 1 {
		return Config{}, fmt.Errorf("interval must be at least 1 second")
	}
	return cfg, nil
}
