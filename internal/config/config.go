package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Dispatch DispatchConfig
	Server   ServerConfig
	Log      LogConfig
	Recent   RecentConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// DispatchConfig bounds mutation batches.
type DispatchConfig struct {
	Timeout time.Duration
}

// ServerConfig holds REST API settings.
type ServerConfig struct {
	Addr string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
	JSON  bool
}

// RecentConfig holds recent boards settings.
type RecentConfig struct {
	Max int
}

// Load reads configuration from file and env. Env var overrides use prefix KANBAN_.
func Load() (Config, error) {
	home, _ := os.UserHomeDir()
	v := viper.New()

	v.SetDefault("database.path", filepath.Join(home, ".kanban", "kanban.db"))
	v.SetDefault("dispatch.timeout", "5s")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("recent.max", 100)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("KANBAN_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "kanban"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("KANBAN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgPath != "" {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// NewLogger builds the application logger from c.
func (c LogConfig) NewLogger() (*log.Logger, error) {
	logger := log.New()
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	if c.JSON {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	return logger, nil
}
