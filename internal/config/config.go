package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server     ServerConfig
	MongoDB    MongoDBConfig
	Sheets     SheetsConfig
	MediaStore MediaStoreConfig
	Archive    ArchiveConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to interact with Google
// Sheets. Optional; without credentials the sheet ingestion and export
// endpoints are disabled.
type SheetsConfig struct {
	CredentialsPath       string
	TemplateSpreadsheetID string
}

// Enabled reports whether the Sheets integration is configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != ""
}

// MediaStoreConfig holds settings for the external file storage service.
// Optional; without a base URL document uploads are disabled.
type MediaStoreConfig struct {
	BaseURL    string
	APIKey     string
	RootFolder string
}

// Enabled reports whether the media store integration is configured.
func (m MediaStoreConfig) Enabled() bool {
	return m.BaseURL != ""
}

// ArchiveConfig holds scheduler-related settings for the fiscal year-end
// archive sweep.
type ArchiveConfig struct {
	CronSchedule string
	Timezone     string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "budgetd"),
		},
		Sheets: SheetsConfig{
			CredentialsPath:       os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			TemplateSpreadsheetID: os.Getenv("PRE_TEMPLATE_SPREADSHEET_ID"),
		},
		MediaStore: MediaStoreConfig{
			BaseURL:    os.Getenv("MEDIA_STORE_BASE_URL"),
			APIKey:     os.Getenv("MEDIA_STORE_API_KEY"),
			RootFolder: getenvWithDefault("MEDIA_STORE_ROOT_FOLDER", "budget-docs"),
		},
		Archive: ArchiveConfig{
			CronSchedule: getenvWithDefault("ARCHIVE_CRON_SCHEDULE", "0 2 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Manila"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Sheets.Enabled() && c.Sheets.TemplateSpreadsheetID == "" {
		return errors.New("PRE_TEMPLATE_SPREADSHEET_ID must be provided when sheets credentials are set")
	}

	if c.MediaStore.Enabled() && c.MediaStore.APIKey == "" {
		return errors.New("MEDIA_STORE_API_KEY must be provided when MEDIA_STORE_BASE_URL is set")
	}

	if c.Archive.CronSchedule == "" {
		return errors.New("ARCHIVE_CRON_SCHEDULE must be provided")
	}

	if c.Archive.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
