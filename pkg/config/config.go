package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseDriver string
	DatabaseURL    string
	JWTSecret      string
	JWTExpiry      time.Duration

	SweepSchedule     string
	SweepBatchSize    int
	HandoffWindow     time.Duration
	HandoffLookahead  time.Duration
	HandoffEarlyStart time.Duration
	CheckoutBuffer    time.Duration
	AutogenHorizon    time.Duration

	GoogleProjectID     string
	ShiftPubSubTopic    string
	GoogleCredentials   string
	FirebaseCredentials string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool

	SMSGatewayURL string
	SMSAPIKey     string
	SMSSender     string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=shifttask port=5432 sslmode=disable"),
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiry:      getDuration("JWT_EXPIRY", 24*time.Hour),

		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "@every 1m"),
		SweepBatchSize:    getInt("SWEEP_BATCH_SIZE", 500),
		HandoffWindow:     getDuration("HANDOFF_WINDOW", 2*time.Hour),
		HandoffLookahead:  getDuration("HANDOFF_LOOKAHEAD", 4*time.Hour),
		HandoffEarlyStart: getDuration("HANDOFF_EARLY_START", 15*time.Minute),
		CheckoutBuffer:    getDuration("CHECKOUT_BUFFER", 30*time.Minute),
		AutogenHorizon:    getDuration("AUTOGEN_HORIZON", 168*time.Hour),

		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		ShiftPubSubTopic:    shortTopic(getEnv("SHIFT_PUBSUB_TOPIC", "shift-events")),
		GoogleCredentials:   getEnv("GOOGLE_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Shift Tasks"),
		SMTPTLS:      getBool("SMTP_TLS", false),

		SMSGatewayURL: getEnv("SMS_GATEWAY_URL", ""),
		SMSAPIKey:     getEnv("SMS_API_KEY", ""),
		SMSSender:     getEnv("SMS_SENDER", ""),
	}
}

// shortTopic accepts either a bare topic name or a full projects/<p>/topics/<t> resource name
func shortTopic(topic string) string {
	if parts := strings.Split(topic, "/"); len(parts) > 1 {
		return parts[len(parts)-1]
	}
	return topic
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
