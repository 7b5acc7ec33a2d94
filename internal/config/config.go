package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env      string
	LogLevel string
	HTTPPort string

	DatabaseURL   string
	RedisAddr     string
	DedupeBackend string
	DedupeTTL     time.Duration

	SlackBotToken      string
	SlackSigningSecret string
	SlackChannelID     string

	AkashiCompanyID string
	AkashiBaseURL   string
	AkashiTimeout   time.Duration
	TimeZone        string

	RefreshSchedule  string
	RefreshLookahead time.Duration

	JWTIssuer       string
	JWTSigningKey   string
	AdminTokenTTL   time.Duration
	RateLimitPerMin int
}

// Load returns application config populated from environment variables with
// sensible defaults. A .env file in the working directory is read first; real
// environment variables win over it.
func Load() App {
	_ = godotenv.Load()
	return App{
		Env:                getEnv("APP_ENV", "dev"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "sqlite://./app.db"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		DedupeBackend:      getEnv("DEDUPE_BACKEND", "memory"),
		DedupeTTL:          durationEnv("DEDUPE_TTL", 10*time.Minute),
		SlackBotToken:      getEnv("SLACK_BOT_TOKEN", ""),
		SlackSigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
		SlackChannelID:     getEnv("SLACK_CHANNEL_ID", ""),
		AkashiCompanyID:    getEnv("AKASHI_COMPANY_ID", ""),
		AkashiBaseURL:      getEnv("AKASHI_BASE_URL", "https://atnd.ak4.jp/api/cooperation"),
		AkashiTimeout:      durationEnv("AKASHI_TIMEOUT", 15*time.Second),
		TimeZone:           getEnv("TIMEZONE", "Asia/Tokyo"),
		RefreshSchedule:    getEnv("REFRESH_SCHEDULE", "0 0 4 * * *"),
		RefreshLookahead:   durationEnv("REFRESH_LOOKAHEAD", 48*time.Hour),
		JWTIssuer:          getEnv("JWT_ISSUER", "stampbot"),
		JWTSigningKey:      getEnv("JWT_SIGNING_KEY", ""),
		AdminTokenTTL:      durationEnv("ADMIN_TOKEN_TTL", 24*time.Hour),
		RateLimitPerMin:    intEnv("RATE_LIMIT_PER_MIN", 30),
	}
}

// Production reports whether APP_ENV names a production deployment.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

// Location resolves TimeZone, falling back to a fixed JST offset when the
// tz database is unavailable.
func (a App) Location() *time.Location {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		log.Printf("invalid TIMEZONE %q: %v, using JST", a.TimeZone, err)
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// ValidateAPI checks the settings the webhook server cannot run without.
func (a App) ValidateAPI() error {
	return require(
		[2]string{"SLACK_BOT_TOKEN", a.SlackBotToken},
		[2]string{"SLACK_SIGNING_SECRET", a.SlackSigningSecret},
		[2]string{"AKASHI_COMPANY_ID", a.AkashiCompanyID},
	)
}

// ValidateWorker checks the settings the refresh job cannot run without.
func (a App) ValidateWorker() error {
	return require([2]string{"AKASHI_COMPANY_ID", a.AkashiCompanyID})
}

// require takes (name, value) pairs and reports the names with empty values.
func require(pairs ...[2]string) error {
	var missing []string
	for _, p := range pairs {
		if p[1] == "" {
			missing = append(missing, p[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
