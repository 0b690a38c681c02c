package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	CORSAllowedOrigins []string

	// Google Calendar integration
	GoogleCredentialsFile string
	GoogleCalendarID      string
	CalendarTimeZone      string

	// Appointment rules
	AppointmentDurationMinutes int
	AvailabilityLookaheadDays  int

	// Outbound notification endpoint. Empty means simulation mode.
	NotificationServiceURL string

	// Local wall-clock time (HH:mm) of the daily confirmation sweep.
	ConfirmationSweepTime string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),
		CalendarTimeZone:      getEnv("CALENDAR_TIME_ZONE", "America/Sao_Paulo"),

		AppointmentDurationMinutes: getEnvAsInt("APPOINTMENT_DURATION_MINUTES", 60),
		AvailabilityLookaheadDays:  getEnvAsInt("AVAILABILITY_LOOKAHEAD_DAYS", 60),

		NotificationServiceURL: getEnv("NOTIFICATION_SERVICE_URL", ""),

		ConfirmationSweepTime: getEnv("CONFIRMATION_SWEEP_TIME", "10:00"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
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
