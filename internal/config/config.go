package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AccessTokenSecret  string // secret used to sign access-class tokens
	RefreshTokenSecret string // secret used to sign refresh-class tokens
	AccessTTLMin       int    // access token time-to-live in minutes
	RefreshTTLDays     int    // refresh token time-to-live in days
	ResetCodeTTLMin    int    // password-reset code time-to-live in minutes
	BcryptCost         int    // bcrypt cost for password hashing

	SMTPHost string // SMTP relay host for outgoing mail
	SMTPPort int    // SMTP relay port
	SMTPUser string // SMTP username
	SMTPPass string // SMTP password
	SMTPFrom string // From header on outgoing mail

	AMQPURL string // RabbitMQ connection URL for auth events (optional)
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // absent .env is fine; real env vars win

	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		AccessTokenSecret:  must("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: must("REFRESH_TOKEN_SECRET"),
		AccessTTLMin:       intOr("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:     intOr("REFRESH_TOKEN_TTL_DAYS", 7),
		ResetCodeTTLMin:    intOr("RESET_CODE_TTL_MIN", 15),
		BcryptCost:         intOr("BCRYPT_COST", 10),

		SMTPHost: must("SMTP_HOST"),
		SMTPPort: mustInt("SMTP_PORT"),
		SMTPUser: must("SMTP_USER"),
		SMTPPass: must("SMTP_PASS"),
		SMTPFrom: must("SMTP_FROM"),

		AMQPURL: os.Getenv("AMQP_URL"), // empty disables event publishing
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// intOr reads an optional integer variable, falling back to def when the
// variable is unset.  A set-but-unparsable value is still fatal.
func intOr(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
