package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML/JSON keys to Go struct fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port    int    `mapstructure:"port"`     // HTTP server port (default: 8000)
		BaseURL string `mapstructure:"base_url"` // Base URL used for absolute media links in broadcasts
	} `mapstructure:"server"`

	// Storage configuration for the state document and media directories
	Storage struct {
		DataFile  string `mapstructure:"data_file"`  // Path of the JSON state document
		StaticDir string `mapstructure:"static_dir"` // Root of the media areas (uploads, banners, hot, orders, og)
		IndexFile string `mapstructure:"index_file"` // Main page template with {{BASE}} placeholders
	} `mapstructure:"storage"`

	// Analytics configuration for asynchronous client-event tracking
	Analytics struct {
		DatabaseName string `mapstructure:"database_name"` // SQLite database file for event rows
		BufferSize   int    `mapstructure:"buffer_size"`   // Size of the event channel buffer
		WorkerCount  int    `mapstructure:"worker_count"`  // Number of worker goroutines persisting events
	} `mapstructure:"analytics"`

	// Visitors configuration for the synthetic counter ticker
	Visitors struct {
		TickSeconds int `mapstructure:"tick_seconds"` // Interval between synthetic increments
	} `mapstructure:"visitors"`

	// Engagement configuration for view deduplication
	Engagement struct {
		ViewCooldownMinutes int `mapstructure:"view_cooldown_minutes"` // Duplicate views inside this window do not count
	} `mapstructure:"engagement"`

	// Listings configuration for publication defaults
	Listings struct {
		ActiveDays       int    `mapstructure:"active_days"`       // Expiry horizon for published listings
		PlaceholderImage string `mapstructure:"placeholder_image"` // Substituted when every staged file fails to move
	} `mapstructure:"listings"`

	// Tariff is the fixed charge table per submission kind (smallest
	// currency unit; amounts are recorded, never charged)
	Tariff struct {
		Banner int `mapstructure:"banner"`
		Hot    int `mapstructure:"hot"`
		Normal int `mapstructure:"normal"`
	} `mapstructure:"tariff"`
}

// LoadConfig loads the application configuration using Viper.
// It supports environment variable overrides and YAML configuration files.
// Returns a populated Config struct or an error if configuration loading fails.
func LoadConfig() (*Config, error) {
	// Enable automatic environment variable binding
	// This allows config values to be overridden via environment variables
	viper.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	// e.g., "server.port" becomes "SERVER_PORT"
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Specify the directory path where Viper should look for config files
	viper.AddConfigPath("./configs")

	// Specify the name of the config file (without the extension)
	viper.SetConfigName("config")

	// Specify the type/format of the config file (YAML in this case)
	viper.SetConfigType("yaml")

	// Set default values for all configuration options
	// These will be used if no config file is found or if specific keys are missing
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.base_url", "http://localhost:8000")
	viper.SetDefault("storage.data_file", "data.json")
	viper.SetDefault("storage.static_dir", "static")
	viper.SetDefault("storage.index_file", "index.html")
	viper.SetDefault("analytics.database_name", "events.db")
	viper.SetDefault("analytics.buffer_size", 1000)
	viper.SetDefault("analytics.worker_count", 5)
	viper.SetDefault("visitors.tick_seconds", 15)
	viper.SetDefault("engagement.view_cooldown_minutes", 10)
	viper.SetDefault("listings.active_days", 30)
	viper.SetDefault("listings.placeholder_image", "https://picsum.photos/seed/new/1200/800")
	viper.SetDefault("tariff.banner", 999)
	viper.SetDefault("tariff.hot", 299)
	viper.SetDefault("tariff.normal", 39)

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		// Check if the error is specifically "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// This is not a fatal error - we'll use default values
			log.Println("Config file not found, using default values")
		} else {
			// Any other error (permissions, malformed YAML, etc.) is fatal
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the loaded configuration into our Config structure
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	log.Printf("Configuration loaded: Server Port=%d, Data File=%s, Analytics Buffer=%d, Tick=%ds",
		cfg.Server.Port, cfg.Storage.DataFile, cfg.Analytics.BufferSize, cfg.Visitors.TickSeconds)

	return &cfg, nil
}
