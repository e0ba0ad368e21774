// internal/config/config.go
package config

import (
	"strings"

	"github.com/spf13/viper"

	"worktrack/internal/report"
)

type Config struct {
	Listen   string `mapstructure:"listen"`
	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
	Security struct {
		RequestID struct {
			TrustHeader bool `mapstructure:"trust_header"`
		} `mapstructure:"request_id"`
		CORS struct {
			AllowedOrigins []string `mapstructure:"allowed_origins"`
		} `mapstructure:"cors"`
	} `mapstructure:"security"`
	Calendar report.WeeklyConfig `mapstructure:"calendar"`
}

func Load() Config {
	viper.SetDefault("listen", "127.0.0.1:8080")
	// Sensible logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("security.request_id.trust_header", false)
	viper.SetDefault("security.cors.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	// Default working calendar: Mon-Fri 08:00-16:00 UTC, no holidays
	viper.SetDefault("calendar.timezone", "UTC")
	viper.SetDefault("calendar.shift_start", "08:00")
	viper.SetDefault("calendar.shift_end", "16:00")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	_ = viper.ReadInConfig()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// explicit bindings
	_ = viper.BindEnv("listen", "LISTEN")
	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("logging.level", "LOG_LEVEL")
	_ = viper.BindEnv("logging.format", "LOG_FORMAT")
	_ = viper.BindEnv("security.request_id.trust_header", "REQUEST_ID_TRUST_HEADER")
	_ = viper.BindEnv("calendar.timezone", "CALENDAR_TIMEZONE")
	_ = viper.BindEnv("calendar.shift_start", "CALENDAR_SHIFT_START")
	_ = viper.BindEnv("calendar.shift_end", "CALENDAR_SHIFT_END")

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		panic("config error: " + err.Error())
	}
	return c
}
