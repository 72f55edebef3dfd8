// Package config assembles runtime settings from the environment, an optional .env file
// and an optional TOML file. Environment variables win over the file, which wins over
// the built-in defaults.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort string
	Debug      bool

	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	JWTSecret string
	TokenTTL  time.Duration

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	Timezone      string
	ExactAlarms   bool
	SweepInterval time.Duration

	AudioPath   string
	TTSEnabled  bool
	TTSLanguage string

	SESFromEmail string
	AWSRegion    string
}

// fileConfig mirrors routine.toml
type fileConfig struct {
	Server struct {
		Port  string `toml:"port"`
		Debug *bool  `toml:"debug"`
	} `toml:"server"`
	Database struct {
		Type       string `toml:"type"`
		Path       string `toml:"path"`
		URL        string `toml:"url"`
		Migrations string `toml:"migrations"`
	} `toml:"database"`
	Auth struct {
		JWTSecret          string `toml:"jwt-secret"`
		TokenTTL           string `toml:"token-ttl"`
		GoogleClientID     string `toml:"google-client-id"`
		GoogleClientSecret string `toml:"google-client-secret"`
		RedirectBaseURL    string `toml:"redirect-base-url"`
	} `toml:"auth"`
	Reminders struct {
		Timezone      string `toml:"timezone"`
		ExactAlarms   *bool  `toml:"exact-alarms"`
		SweepInterval string `toml:"sweep-interval"`
	} `toml:"reminders"`
	Audio struct {
		Path       string `toml:"path"`
		TTSEnabled *bool  `toml:"tts-enabled"`
		Language   string `toml:"language"`
	} `toml:"audio"`
	Email struct {
		From      string `toml:"from"`
		AWSRegion string `toml:"aws-region"`
	} `toml:"email"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		ServerPort:    "8080",
		DatabaseType:  "sqlite",
		DatabasePath:  "./routine.db",
		TokenTTL:      7 * 24 * time.Hour,
		Timezone:      "Local",
		ExactAlarms:   true,
		SweepInterval: 30 * time.Second,
		AudioPath:     "./audio",
		TTSLanguage:   "en",
		AWSRegion:     "us-east-1",
	}
}

// Load reads configuration. A missing .env or TOML file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg := Defaults()

	path := getEnv("ROUTINE_CONFIG", "routine.toml")
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.ServerPort, fc.Server.Port)
	setBool(&c.Debug, fc.Server.Debug)
	setString(&c.DatabaseType, fc.Database.Type)
	setString(&c.DatabasePath, fc.Database.Path)
	setString(&c.DatabaseURL, fc.Database.URL)
	setString(&c.MigrationsPath, fc.Database.Migrations)
	setString(&c.JWTSecret, fc.Auth.JWTSecret)
	setString(&c.GoogleClientID, fc.Auth.GoogleClientID)
	setString(&c.GoogleClientSecret, fc.Auth.GoogleClientSecret)
	setString(&c.OAuthRedirectBaseURL, fc.Auth.RedirectBaseURL)
	setString(&c.Timezone, fc.Reminders.Timezone)
	setBool(&c.ExactAlarms, fc.Reminders.ExactAlarms)
	setString(&c.AudioPath, fc.Audio.Path)
	setBool(&c.TTSEnabled, fc.Audio.TTSEnabled)
	setString(&c.TTSLanguage, fc.Audio.Language)
	setString(&c.SESFromEmail, fc.Email.From)
	setString(&c.AWSRegion, fc.Email.AWSRegion)

	if err := setDuration(&c.TokenTTL, fc.Auth.TokenTTL); err != nil {
		return fmt.Errorf("auth.token-ttl: %w", err)
	}
	if err := setDuration(&c.SweepInterval, fc.Reminders.SweepInterval); err != nil {
		return fmt.Errorf("reminders.sweep-interval: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.DatabaseType = getEnv("DB_TYPE", c.DatabaseType)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.MigrationsPath = getEnv("MIGRATIONS_PATH", c.MigrationsPath)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.GoogleClientID)
	c.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.GoogleClientSecret)
	c.OAuthRedirectBaseURL = getEnv("OAUTH_REDIRECT_BASE_URL", c.OAuthRedirectBaseURL)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.AudioPath = getEnv("AUDIO_PATH", c.AudioPath)
	c.TTSLanguage = getEnv("TTS_LANGUAGE", c.TTSLanguage)
	c.SESFromEmail = getEnv("SES_FROM_EMAIL", c.SESFromEmail)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)

	var err error
	if c.Debug, err = getEnvBool("DEBUG", c.Debug); err != nil {
		return err
	}
	if c.ExactAlarms, err = getEnvBool("EXACT_ALARMS", c.ExactAlarms); err != nil {
		return err
	}
	if c.TTSEnabled, err = getEnvBool("TTS_ENABLED", c.TTSEnabled); err != nil {
		return err
	}
	if c.TokenTTL, err = getEnvDuration("TOKEN_TTL", c.TokenTTL); err != nil {
		return err
	}
	if c.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", c.SweepInterval); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone used for time-of-day reminders
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GoogleOAuthEnabled reports whether Google sign-in is configured
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.OAuthRedirectBaseURL != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

func setDuration(dst *time.Duration, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
