package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	BotToken  string
	JWTSecret string

	// Telegram IDs allowed to call admin endpoints.
	AdminIDs []int64

	Timezone string

	// Bonus CUP granted to every newly created account.
	BonusCUPDefault string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:             getEnv("ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:       getEnv("REDIS_PASS", ""),
		BotToken:        os.Getenv("BOT_TOKEN"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
		Timezone:        getEnv("TIMEZONE", "America/Havana"),
		BonusCUPDefault: getEnv("BONUS_CUP_DEFAULT", "70"),
	}

	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %v", err)
	}
	cfg.RedisDB = db

	for _, raw := range strings.Split(os.Getenv("ADMIN_IDS"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %v", raw, err)
		}
		cfg.AdminIDs = append(cfg.AdminIDs, id)
	}

	return cfg, nil
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
