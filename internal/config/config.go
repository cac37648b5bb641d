package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Meevo provider
	MeevoAuthURL        string
	MeevoAPIURL         string
	MeevoAPIURLV2       string
	MeevoClientID       string
	MeevoClientSecret   string
	MeevoTenantID       string
	MeevoLocationID     string
	MeevoActiveState    int
	MeevoRosterPageSize int
	MeevoRosterTimeout  time.Duration
	MeevoScanTimeout    time.Duration
	MeevoRateLimitRPS   float64
	MeevoRateBurst      int

	// Location and services
	LocationName     string
	DefaultServiceID string
	ServiceMapJSON   string

	// Scan shape
	ScanTimezone       string
	ScanLookaheadDays  int
	ScanDayStart       string
	ScanDayEnd         string
	ScanWindowWidth    time.Duration
	ScanWindowStep     time.Duration
	ScanConcurrency    int
	MaxOpenings        int
	RosterTTL          time.Duration
	TokenRefreshMargin time.Duration

	// Inbound HTTP
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "3000"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MeevoAuthURL:        getEnv("MEEVO_AUTH_URL", "https://marketplace.meevo.com/oauth2/token"),
		MeevoAPIURL:         getEnv("MEEVO_API_URL", "https://na1pub.meevo.com/publicapi/v1"),
		MeevoAPIURLV2:       getEnv("MEEVO_API_URL_V2", "https://na1pub.meevo.com/publicapi/v2"),
		MeevoClientID:       getEnv("MEEVO_CLIENT_ID", ""),
		MeevoClientSecret:   getEnv("MEEVO_CLIENT_SECRET", ""),
		MeevoTenantID:       getEnv("MEEVO_TENANT_ID", ""),
		MeevoLocationID:     getEnv("MEEVO_LOCATION_ID", ""),
		MeevoActiveState:    getEnvAsInt("MEEVO_ACTIVE_STATE", 2026),
		MeevoRosterPageSize: getEnvAsInt("MEEVO_ROSTER_PAGE_SIZE", 100),
		MeevoRosterTimeout:  getEnvAsDuration("MEEVO_ROSTER_TIMEOUT", 5*time.Second),
		MeevoScanTimeout:    getEnvAsDuration("MEEVO_SCAN_TIMEOUT", 5*time.Second),
		MeevoRateLimitRPS:   getEnvAsFloat("MEEVO_RATE_LIMIT_RPS", 0),
		MeevoRateBurst:      getEnvAsInt("MEEVO_RATE_BURST", 20),

		LocationName:     getEnv("LOCATION_NAME", "Phoenix Encanto"),
		DefaultServiceID: getEnv("DEFAULT_SERVICE_ID", "f9160450-0b51-4ddc-bcc7-ac150103d5c0"),
		ServiceMapJSON:   getEnv("SERVICE_MAP_JSON", ""),

		ScanTimezone:       getEnv("SCAN_TIMEZONE", "America/Phoenix"),
		ScanLookaheadDays:  getEnvAsInt("SCAN_LOOKAHEAD_DAYS", 3),
		ScanDayStart:       getEnv("SCAN_DAY_START", "06:00"),
		ScanDayEnd:         getEnv("SCAN_DAY_END", "22:00"),
		ScanWindowWidth:    getEnvAsDuration("SCAN_WINDOW_WIDTH", 2*time.Hour),
		ScanWindowStep:     getEnvAsDuration("SCAN_WINDOW_STEP", time.Hour),
		ScanConcurrency:    getEnvAsInt("SCAN_CONCURRENCY", 16),
		MaxOpenings:        getEnvAsInt("MAX_OPENINGS", 100),
		RosterTTL:          getEnvAsDuration("ROSTER_TTL", time.Hour),
		TokenRefreshMargin: getEnvAsDuration("TOKEN_REFRESH_MARGIN", 5*time.Minute),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
	}
}

// Validate reports configuration that would make every request fail.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.MeevoClientID) == "" {
		missing = append(missing, "MEEVO_CLIENT_ID")
	}
	if strings.TrimSpace(c.MeevoClientSecret) == "" {
		missing = append(missing, "MEEVO_CLIENT_SECRET")
	}
	if strings.TrimSpace(c.MeevoTenantID) == "" {
		missing = append(missing, "MEEVO_TENANT_ID")
	}
	if strings.TrimSpace(c.MeevoLocationID) == "" {
		missing = append(missing, "MEEVO_LOCATION_ID")
	}
	if strings.TrimSpace(c.DefaultServiceID) == "" {
		missing = append(missing, "DEFAULT_SERVICE_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	if _, err := time.LoadLocation(c.ScanTimezone); err != nil {
		return fmt.Errorf("config: invalid SCAN_TIMEZONE %q: %w", c.ScanTimezone, err)
	}
	if c.ScanLookaheadDays < 0 {
		return fmt.Errorf("config: SCAN_LOOKAHEAD_DAYS must not be negative")
	}
	return nil
}

// ServiceMap decodes SERVICE_MAP_JSON. It returns nil when unset.
func (c *Config) ServiceMap() (map[string]string, error) {
	raw := strings.TrimSpace(c.ServiceMapJSON)
	if raw == "" {
		return nil, nil
	}
	var table map[string]string
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return nil, fmt.Errorf("config: parse SERVICE_MAP_JSON: %w", err)
	}
	return table, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
