package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultEventsPerPage = 5

// Config represents the bot configuration.
type Config struct {
	BotToken      string
	AdminIDs      []int64
	DatabasePath  string
	EventsPerPage int
	LogLevel      string
	LogDev        bool
}

// LoadConfig loads configuration from a .env file (if present) and
// environment variables.
func LoadConfig() (*Config, error) {
	// Missing .env is fine; environment variables win either way.
	_ = godotenv.Load()

	config := &Config{
		BotToken:      os.Getenv("BOT_TOKEN"),
		DatabasePath:  os.Getenv("DATABASE_PATH"),
		EventsPerPage: defaultEventsPerPage,
		LogLevel:      os.Getenv("LOG_LEVEL"),
		LogDev:        os.Getenv("LOG_DEV") == "1",
	}

	if config.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if config.DatabasePath == "" {
		config.DatabasePath = "./bot.db"
	}

	if adminIDs := os.Getenv("ADMIN_IDS"); adminIDs != "" {
		ids, err := parseAdminIDs(adminIDs)
		if err != nil {
			return nil, err
		}
		config.AdminIDs = ids
	}

	if perPage := os.Getenv("EVENTS_PER_PAGE"); perPage != "" {
		n, err := strconv.Atoi(perPage)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid EVENTS_PER_PAGE: %s", perPage)
		}
		config.EventsPerPage = n
	}

	return config, nil
}

// parseAdminIDs parses a comma-separated list of Telegram user ids.
func parseAdminIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id: %s", trimmed)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsConfiguredAdmin checks whether the Telegram user id is listed in
// ADMIN_IDS.
func (c *Config) IsConfiguredAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
