package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config carries everything the bot needs at startup. All values come from the
// environment; main loads .env first via godotenv.
type Config struct {
	BotToken    string
	GitHubToken string
	AdminID     int64

	// BaseDir is the root of the filesystem area the bot may touch.
	// TempDir, DownloadsDir and LogsDir live underneath it.
	BaseDir      string
	TempDir      string
	DownloadsDir string
	LogsDir      string

	// OpsAddr is the listen address for the health/stats endpoint. Empty
	// disables the ops server.
	OpsAddr string
	OpsUser string
	OpsPass string

	LogLevel string
}

// Load reads the configuration from the environment. BOT_TOKEN and ADMIN_ID
// are required; everything else has a default or degrades gracefully.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:    os.Getenv("BOT_TOKEN"),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		OpsAddr:     os.Getenv("OPS_ADDR"),
		OpsUser:     os.Getenv("OPS_USER"),
		OpsPass:     os.Getenv("OPS_PASS"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN not set")
	}

	rawAdmin := os.Getenv("ADMIN_ID")
	if rawAdmin == "" {
		return nil, fmt.Errorf("ADMIN_ID not set")
	}
	adminID, err := strconv.ParseInt(rawAdmin, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_ID %q is not a valid user id: %w", rawAdmin, err)
	}
	cfg.AdminID = adminID

	base := os.Getenv("REPOBOT_BASE_DIR")
	if base == "" {
		base, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
	}
	base, err = filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolving base dir: %w", err)
	}
	cfg.BaseDir = base
	cfg.TempDir = filepath.Join(base, "temp_downloads")
	cfg.DownloadsDir = filepath.Join(base, "downloads")
	cfg.LogsDir = filepath.Join(base, "logs")

	return cfg, nil
}

// EnsureDirs creates the working directories under BaseDir.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.TempDir, c.DownloadsDir, c.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
