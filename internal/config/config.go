package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL           string
	AuthToken             string
	AdminTokenSecret      string
	Port                  string
	CompletionRewardCoins int64
}

// Load reads configuration from the environment, with an optional .env
// file for local development.
func Load() (Config, error) {
	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		host := envOr("DB_HOST", "localhost")
		port := envOr("DB_PORT", "5432")
		user := strings.TrimSpace(os.Getenv("DB_USER"))
		password := strings.TrimSpace(os.Getenv("DB_PASSWORD"))
		name := strings.TrimSpace(os.Getenv("DB_NAME"))
		sslmode := envOr("DB_SSLMODE", "disable")
		if user == "" || password == "" || name == "" {
			return Config{}, errors.New("DATABASE_URL or DB_USER/DB_PASSWORD/DB_NAME are required")
		}
		dbURL = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host,
			port,
			user,
			password,
			name,
			sslmode,
		)
	}

	authToken := strings.TrimSpace(os.Getenv("AUTH_TOKEN"))
	if authToken == "" {
		return Config{}, errors.New("AUTH_TOKEN is required")
	}

	adminSecret := strings.TrimSpace(os.Getenv("ADMIN_TOKEN_SECRET"))
	if adminSecret == "" {
		return Config{}, errors.New("ADMIN_TOKEN_SECRET is required")
	}

	reward := int64(0)
	if raw := strings.TrimSpace(os.Getenv("COMPLETION_REWARD_COINS")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return Config{}, fmt.Errorf("invalid COMPLETION_REWARD_COINS: %q", raw)
		}
		reward = parsed
	}

	return Config{
		DatabaseURL:           dbURL,
		AuthToken:             authToken,
		AdminTokenSecret:      adminSecret,
		Port:                  envOr("PORT", "8080"),
		CompletionRewardCoins: reward,
	}, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
