package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so admin ids can be written as "123456" or 123456.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Admin    AdminConfig    `json:"admin"`
	Catalog  CatalogConfig  `json:"catalog"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	Token string `env:"SHOWCASE_TELEGRAM_TOKEN" json:"token"`
}

type AdminConfig struct {
	IDs FlexibleStringSlice `env:"SHOWCASE_ADMIN_IDS" json:"ids"`
}

type CatalogConfig struct {
	SectionsPath  string `env:"SHOWCASE_CATALOG_SECTIONS"   json:"sections_path"`
	DeepLinksPath string `env:"SHOWCASE_CATALOG_DEEP_LINKS" json:"deep_links_path"`
	AssetsDir     string `env:"SHOWCASE_CATALOG_ASSETS_DIR" json:"assets_dir"`
}

type DatabaseConfig struct {
	Path string `env:"SHOWCASE_DATABASE_PATH" json:"path"`
}

type LoggingConfig struct {
	Level string `env:"SHOWCASE_LOG_LEVEL" json:"level"` // debug, info, warn, error
	Dir   string `env:"SHOWCASE_LOG_DIR"   json:"dir"`   // empty disables file logging
}

func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			SectionsPath:  "data/sections.yaml",
			DeepLinksPath: "data/deep_links.yaml",
			AssetsDir:     ".",
		},
		Database: DatabaseConfig{
			Path: "data/bot.db",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
	}
}

// LoadConfig reads the JSON config file (missing file falls back to defaults),
// then applies environment overrides. A .env file next to the working
// directory is honored before env parsing.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Legacy env names used by earlier deployments.
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv("BOT_TOKEN")
	}
	if len(cfg.Admin.IDs) == 0 {
		if raw := os.Getenv("ADMIN_ID"); raw != "" {
			cfg.Admin.IDs = splitCSV(raw)
		}
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the fields without which the bot cannot start.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (SHOWCASE_TELEGRAM_TOKEN or BOT_TOKEN)")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	return nil
}

// IsAdmin reports whether the given chat id is in the admin allow-list.
func (c *Config) IsAdmin(chatID int64) bool {
	id := strconv.FormatInt(chatID, 10)
	for _, admin := range c.Admin.IDs {
		if admin == id {
			return true
		}
	}
	return false
}

func splitCSV(raw string) FlexibleStringSlice {
	var out FlexibleStringSlice
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
