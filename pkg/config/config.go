package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
)

// App holds application configuration.
type App struct {
	Name    string `mapstructure:"name" default:"apexpulse"`
	Env     string `mapstructure:"env" default:"development"`
	Version string `mapstructure:"version"`
}

// Logger holds logger configuration.
type Logger struct {
	Level    string `mapstructure:"level" default:"info"`
	Encoding string `mapstructure:"encoding" default:"json"`
}

// Database holds database configuration.
type Database struct {
	Driver          string `mapstructure:"driver" default:"postgres"`
	Host            string `mapstructure:"host" default:"localhost"`
	Port            int    `mapstructure:"port" default:"5432"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name" default:"apexpulse"`
	SSLMode         string `mapstructure:"ssl_mode" default:"disable"`
	TimeZone        string `mapstructure:"time_zone" default:"UTC"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" default:"5"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" default:"20"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime" default:"30m"`
	LogLevel        string `mapstructure:"log_level" default:"warn"`
}

// Redis holds Redis configuration.
type Redis struct {
	Host     string `mapstructure:"host" default:"localhost"`
	Port     int    `mapstructure:"port" default:"6379"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size" default:"10"`
}

// API holds API server configuration.
// SessionHeader names the header an authenticating proxy uses to forward the session's tenant id;
// empty disables session auth. The header is trusted without further checks, so the proxy must
// strip it from incoming requests and the engine must not be reachable around the proxy.
type API struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port" default:"8080"`
	SyncToken     string `mapstructure:"sync_token"`
	SessionHeader string `mapstructure:"session_header"`
}

// Metrics holds the prometheus endpoint configuration.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled" default:"true"`
	Path    string `mapstructure:"path" default:"/metrics"`
}

// Load loads configuration from a file into the given config struct.
// Struct defaults are applied first so absent keys keep their default values.
func Load(path string, config interface{}) error {
	if err := defaults.Set(config); err != nil {
		return fmt.Errorf("failed to apply config defaults: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Println("Failed to read config file, falling back to environment variables")
	}

	return v.Unmarshal(config)
}
