// Package config defines the back office configuration and its loader.
package config

import (
	"time"
	_ "time/tzdata" // zones resolve on hosts without a zoneinfo database
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. ":memory:" keeps everything in RAM.
	DBPath string `koanf:"db_path"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// JWTSecret signs and verifies bearer tokens (HS256).
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the lifetime of tokens issued by cmd/add-staff.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// TimeZone is the IANA zone that defines "today" and calendar months.
	TimeZone string `koanf:"time_zone"`

	// Locale selects spreadsheet labels ("ko" or "en").
	Locale string `koanf:"locale"`

	// AllowedOrigins lists the CORS origins of the front end. In the
	// environment it is comma-separated: OFFICE_ALLOWED_ORIGINS=https://a,https://b
	AllowedOrigins []string `koanf:"allowed_origins"`

	// PageSize is the number of clients per list page.
	PageSize int `koanf:"page_size"`

	// TopAddressLimit caps the address list in org statistics.
	TopAddressLimit int `koanf:"top_address_limit"`

	// TrendMonths is the length of the contract trend.
	TrendMonths int `koanf:"trend_months"`

	// RankingLimit caps the performance ranking.
	RankingLimit int `koanf:"ranking_limit"`

	// StatsInterval is how often the snapshot gauges are refreshed. Zero
	// disables the refresher.
	StatsInterval time.Duration `koanf:"stats_interval"`

	// EnableScenarios mounts the demo data loaders under /api/scenarios.
	// They wipe the database; keep this off outside development.
	EnableScenarios bool `koanf:"enable_scenarios"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		Addr:            ":8080",
		DBPath:          "office.db",
		LogLevel:        "info",
		TokenTTL:        12 * time.Hour,
		TimeZone:        "Asia/Seoul",
		Locale:          "ko",
		AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:8080"},
		PageSize:        50,
		TopAddressLimit: 5,
		TrendMonths:     6,
		RankingLimit:    3,
		StatsInterval:   time.Minute,
	}
}

// Location resolves TimeZone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}
