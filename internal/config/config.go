package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// TwilioConfig holds the SMS provider credentials
type TwilioConfig struct {
	AccountSID string `yaml:"accountSID" validate:"required"`
	AuthToken  string `yaml:"authToken" validate:"required"`
	FromNumber string `yaml:"fromNumber" validate:"required"`
}

// SMSConfig tunes the dispatch retry behaviour
type SMSConfig struct {
	MaxRetries       int `yaml:"maxRetries" validate:"min=1"`
	BaseDelaySeconds int `yaml:"baseDelaySeconds" validate:"min=1"`
}

// JobsConfig holds the cron expressions for the background triggers
type JobsConfig struct {
	DailyNotifications string `yaml:"dailyNotifications" validate:"required"`
	AutoRenewal        string `yaml:"autoRenewal" validate:"required"`
	WeeklySummary      string `yaml:"weeklySummary" validate:"required"`
	OverrideSweep      string `yaml:"overrideSweep" validate:"required"`
	SummaryHour        int    `yaml:"summaryHour" validate:"min=0,max=23"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL string       `yaml:"databaseURL" validate:"required"`
	Timezone    string       `yaml:"timezone" validate:"required"`
	Twilio      TwilioConfig `yaml:"twilio" validate:"required"`
	SMS         SMSConfig    `yaml:"sms"`
	Jobs        JobsConfig   `yaml:"jobs"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from whoseonfirst.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Config{
		Timezone: "UTC",
		SMS: SMSConfig{
			MaxRetries:       3,
			BaseDelaySeconds: 2,
		},
		Jobs: JobsConfig{
			DailyNotifications: "0 8 * * *",
			AutoRenewal:        "0 2 * * *",
			WeeklySummary:      "0 8 * * 1",
			OverrideSweep:      "30 0 * * *",
			SummaryHour:        8,
		},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the timezone, and the cron
// expressions
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	exprs := map[string]string{
		"dailyNotifications": cfg.Jobs.DailyNotifications,
		"autoRenewal":        cfg.Jobs.AutoRenewal,
		"weeklySummary":      cfg.Jobs.WeeklySummary,
		"overrideSweep":      cfg.Jobs.OverrideSweep,
	}
	for name, expr := range exprs {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid cron expression in jobs.%s: %w", name, err)
		}
	}

	return nil
}

// Location returns the configured timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BaseDelay returns the configured retry base delay as a duration
func (c *Config) BaseDelay() time.Duration {
	return time.Duration(c.SMS.BaseDelaySeconds) * time.Second
}

// findConfigFile searches for whoseonfirst.yaml in current directory and home directory
func findConfigFile() (string, error) {
	configFileName := "whoseonfirst.yaml"

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
