package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration. Loaded once at startup and passed by
// injection; nothing reads the environment after Load returns.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Square platform access.
	SquareAccessToken string
	SquareBaseURL     string
	SquareLocationID  string

	// Providers (Square team members). The first entry is the default when a
	// request does not name one.
	TeamMemberIDs []string

	// Provider portal credentials, keyed by team member id.
	ProviderPasswords map[string]string

	// Catalog filter for appointable telehealth services.
	ServiceKeyword string

	// Timezone used when formatting slot display strings.
	DisplayTimezone string

	// Booking workflow strategy switches.
	RequirePayment     bool
	FallbackSlots      bool
	AppendCustomerNote bool

	VideoCallURL string
	SupportPhone string

	// Confirmation email (optional, disabled when APIKey is empty).
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SquareAccessToken: getEnv("SQUARE_ACCESS_TOKEN", ""),
		SquareBaseURL:     getEnv("SQUARE_BASE_URL", ""),
		SquareLocationID:  getEnv("SQUARE_LOCATION_ID", ""),

		TeamMemberIDs:     splitList(getEnv("SQUARE_TEAM_MEMBER_IDS", "")),
		ProviderPasswords: parseProviderPasswords(getEnv("PROVIDER_PASSWORDS", ""), splitList(getEnv("SQUARE_TEAM_MEMBER_IDS", ""))),

		ServiceKeyword:  getEnv("SERVICE_KEYWORD", "telehealth"),
		DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "America/New_York"),

		RequirePayment:     getEnvAsBool("REQUIRE_PAYMENT", false),
		FallbackSlots:      getEnvAsBool("FALLBACK_SLOTS", false),
		AppendCustomerNote: getEnvAsBool("APPEND_CUSTOMER_NOTE", true),

		VideoCallURL: getEnv("VIDEO_CALL_URL", ""),
		SupportPhone: getEnv("SUPPORT_PHONE", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Telehealth Clinic"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 30),
	}
}

// DefaultTeamMemberID returns the first configured provider id, or "".
func (c *Config) DefaultTeamMemberID() string {
	if len(c.TeamMemberIDs) == 0 {
		return ""
	}
	return c.TeamMemberIDs[0]
}

// parseProviderPasswords accepts either "teamID:password" pairs separated by
// commas, or a single bare password which is assigned to the first provider.
func parseProviderPasswords(raw string, teamMemberIDs []string) map[string]string {
	out := map[string]string{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, password, found := strings.Cut(pair, ":")
		if !found {
			if len(teamMemberIDs) > 0 {
				out[teamMemberIDs[0]] = pair
			}
			continue
		}
		out[strings.TrimSpace(id)] = password
	}
	return out
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
