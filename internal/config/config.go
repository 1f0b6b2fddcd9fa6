package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	ListenAddr string
	SQLitePath string
	WebPath    string

	// Upstream connection pooling
	PoolSize int // distinct backend transports kept warm

	// Images
	ImgPrimaryMaxWidth int // e.g. 300

	// Stats snapshots
	StatsIntervalSec int // 0 disables the periodic collector

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text, dev

	// Admin
	AdminToken string // empty disables auth on mutating routes
}

func Load() Config {
	dbPath := env("SQLITE_PATH", "/var/lib/faveswitch/faveswitch.db")
	webPath := env("WEB_PATH", "/app/web")

	_ = os.MkdirAll(filepath.Dir(dbPath), 0755)

	cfg := Config{
		ListenAddr:         env("LISTEN_ADDR", ":8787"),
		SQLitePath:         dbPath,
		WebPath:            webPath,
		PoolSize:           envInt("POOL_SIZE", 12),
		ImgPrimaryMaxWidth: envInt("IMG_PRIMARY_MAX_WIDTH", 300),
		StatsIntervalSec:   envInt("STATS_INTERVAL", 0),
		LogLevel:           env("LOG_LEVEL", "info"),
		LogFormat:          env("LOG_FORMAT", "text"),
		AdminToken:         env("ADMIN_TOKEN", ""),
	}

	fmt.Printf("[INFO] Using SQLite DB at: %s\n", dbPath)
	if cfg.AdminToken == "" {
		fmt.Println("[WARN] ADMIN_TOKEN is not set! Mutating routes are unauthenticated.")
	}
	return cfg
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
