package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("MONGODB_DB_NAME", "")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	t.Setenv("MEDIA_STORE_BASE_URL", "")

	cfg, err := Load("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "budgetd", cfg.MongoDB.DBName)
	assert.Equal(t, "0 2 * * *", cfg.Archive.CronSchedule)
	assert.Equal(t, "Asia/Manila", cfg.Archive.Timezone)
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.MediaStore.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("MONGODB_DB_NAME", "campus")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/etc/creds.json")
	t.Setenv("PRE_TEMPLATE_SPREADSHEET_ID", "sheet-123")
	t.Setenv("MEDIA_STORE_BASE_URL", "https://media.example.com")
	t.Setenv("MEDIA_STORE_API_KEY", "secret")

	cfg, err := Load("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "campus", cfg.MongoDB.DBName)
	assert.True(t, cfg.Sheets.Enabled())
	assert.Equal(t, "sheet-123", cfg.Sheets.TemplateSpreadsheetID)
	assert.True(t, cfg.MediaStore.Enabled())
	assert.Equal(t, "budget-docs", cfg.MediaStore.RootFolder)
}

func TestValidate_SheetsRequiresTemplate(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/etc/creds.json")
	t.Setenv("PRE_TEMPLATE_SPREADSHEET_ID", "")

	_, err := Load("nonexistent.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRE_TEMPLATE_SPREADSHEET_ID")
}

func TestValidate_MediaStoreRequiresKey(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	t.Setenv("MEDIA_STORE_BASE_URL", "https://media.example.com")
	t.Setenv("MEDIA_STORE_API_KEY", "")

	_, err := Load("nonexistent.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEDIA_STORE_API_KEY")
}
