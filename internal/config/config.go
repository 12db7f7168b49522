package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Instrument InstrumentConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	LogLevel       string
}

// InstrumentConfig holds the bus settings of the microwave source
type InstrumentConfig struct {
	Address      string
	CommTimeout  time.Duration
	MaxPower     *float64
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "dev")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("POLL_INTERVAL", "200ms")
	viper.SetDefault("POLL_TIMEOUT", "0s")

	// Read from .env files based on environment
	env := viper.GetString("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	viper.SetConfigName(".env." + env)
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// Read .env file (ignore error if file doesn't exist)
	_ = viper.ReadInConfig()

	// Environment variables override .env file values
	viper.AutomaticEnv()

	viper.BindEnv("DATABASE_URL")
	viper.BindEnv("PORT")
	viper.BindEnv("ENVIRONMENT")
	viper.BindEnv("ALLOWED_ORIGINS")
	viper.BindEnv("LOG_LEVEL")
	viper.BindEnv("VISA_ADDRESS")
	viper.BindEnv("COMM_TIMEOUT")
	viper.BindEnv("MAX_POWER")
	viper.BindEnv("POLL_INTERVAL")
	viper.BindEnv("POLL_TIMEOUT")

	var config Config
	config.Database.URL = viper.GetString("DATABASE_URL")
	config.Server.Port = viper.GetString("PORT")
	config.Server.Env = viper.GetString("ENVIRONMENT")
	config.Server.AllowedOrigins = strings.Split(viper.GetString("ALLOWED_ORIGINS"), ",")
	config.Server.LogLevel = viper.GetString("LOG_LEVEL")

	config.Instrument.Address = viper.GetString("VISA_ADDRESS")
	if config.Instrument.Address == "" {
		return nil, fmt.Errorf("VISA_ADDRESS is required")
	}

	// comm timeout is given in seconds
	if viper.IsSet("COMM_TIMEOUT") {
		secs := viper.GetFloat64("COMM_TIMEOUT")
		if secs <= 0 {
			return nil, fmt.Errorf("COMM_TIMEOUT must be positive, got %v", secs)
		}
		config.Instrument.CommTimeout = time.Duration(secs * float64(time.Second))
	} else {
		log.Warn().Msg("COMM_TIMEOUT not set, using 10 seconds")
		config.Instrument.CommTimeout = 10 * time.Second
	}

	if raw := strings.TrimSpace(viper.GetString("MAX_POWER")); raw != "" && !strings.EqualFold(raw, "null") {
		maxPower := viper.GetFloat64("MAX_POWER")
		config.Instrument.MaxPower = &maxPower
	}

	config.Instrument.PollInterval = viper.GetDuration("POLL_INTERVAL")
	config.Instrument.PollTimeout = viper.GetDuration("POLL_TIMEOUT")

	log.Info().
		Str("address", config.Instrument.Address).
		Dur("comm_timeout", config.Instrument.CommTimeout).
		Bool("max_power_clamp", config.Instrument.MaxPower != nil).
		Bool("journal", config.Database.URL != "").
		Msg("Configuration loaded")

	return &config, nil
}
