package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	TelegramToken string

	CoursesDir               string
	GoogleServiceAccountJSON string
	RosterSpreadsheetID      string

	GithubToken string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HTTPAddr     string
	ExportSecret string

	LogLevel  string
	LogFormat string
}

func FromEnv() (Config, error) {
	var c Config
	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	c.GoogleServiceAccountJSON = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	c.RosterSpreadsheetID = strings.TrimSpace(os.Getenv("ROSTER_SPREADSHEET_ID"))
	c.GithubToken = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))

	c.CoursesDir = strings.TrimSpace(os.Getenv("COURSES_DIR"))
	if c.CoursesDir == "" {
		c.CoursesDir = "courses"
	}

	c.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	c.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return c, fmt.Errorf("REDIS_DB: %w", err)
		}
		c.RedisDB = db
	}

	c.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	c.ExportSecret = strings.TrimSpace(os.Getenv("EXPORT_SECRET"))
	if c.ExportSecret == "" {
		c.ExportSecret = "change-me"
	}

	c.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	c.LogFormat = strings.TrimSpace(os.Getenv("LOG_FORMAT"))

	if c.TelegramToken == "" {
		return c, fmt.Errorf("TELEGRAM_BOT_TOKEN is empty")
	}
	if c.RosterSpreadsheetID == "" {
		return c, fmt.Errorf("ROSTER_SPREADSHEET_ID is empty")
	}
	if c.GoogleServiceAccountJSON == "" {
		return c, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is empty")
	}
	if c.GithubToken == "" {
		return c, fmt.Errorf("GITHUB_TOKEN is empty")
	}

	return c, nil
}
