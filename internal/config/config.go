package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"go-paineltv/pkg/validator"
)

// Config is the static, process-lifetime configuration of the engine.
type Config struct {
	DatabaseURL string `validate:"required"`

	// Watched scale export
	WatchPath        string
	WatchIntervalMin int `validate:"gte=1"`

	// Reconciliation policy
	PriceDeltaLimitPct float64 `validate:"gte=0"`
	NameSimilarityMin  float64 `validate:"gte=0,lte=1"`

	// How recently a product must have been created to be auto-added to a
	// panel that already has content
	PanelFreshnessMin int `validate:"gte=0"`

	LogFile    string
	LogConsole bool
}

// Load reads the configuration from the environment. The DSN comes from
// DATABASE_URL, or is assembled from the DB_* parts when unset.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" && os.Getenv("DB_HOST") != "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)
	}

	cfg := &Config{
		DatabaseURL:        dsn,
		WatchPath:          os.Getenv("TOLEDO_WATCH_PATH"),
		WatchIntervalMin:   envInt("TOLEDO_WATCH_INTERVAL_MIN", 30),
		PriceDeltaLimitPct: envFloat("PRICE_DELTA_LIMIT_PCT", 40),
		NameSimilarityMin:  envFloat("NAME_SIMILARITY_MIN", 0.6),
		PanelFreshnessMin:  envInt("PANEL_FRESHNESS_MIN", 10),
		LogFile:            os.Getenv("LOG_FILE"),
		LogConsole:         envBool("LOG_CONSOLE", true),
	}

	if errs := validator.ValidateStruct(cfg); len(errs) > 0 {
		first := errs[0]
		return nil, errors.New("invalid config: field '" + first.FailedField + "' failed on tag '" + first.Tag + "'")
	}
	return cfg, nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
