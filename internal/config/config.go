package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and database coordinates are required;
// token lifetimes and hashing cost fall back to sensible defaults.
type Config struct {
	Env              string   // application environment (e.g. "dev", "prod")
	Port             string   // HTTP port to listen on
	DBUser           string   // database username
	DBPass           string   // database password (optional)
	DBHost           string   // database host address
	DBPort           string   // database port number
	DBName           string   // database name
	DBMigrate        bool     // run the embedded schema on startup
	JWTAccessSecret  string   // secret used to sign access tokens
	JWTRefreshSecret string   // secret used to sign refresh tokens
	AccessTTLMin     int      // access token time‑to‑live in minutes
	RefreshTTLDays   int      // refresh token time‑to‑live in days
	BcryptCost       int      // bcrypt cost for password hashing
	CORSOrigins      []string // allowed CORS origins
}

// AccessTTL returns the access token lifetime as a duration.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL returns the refresh token lifetime as a duration.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:              envStr("APP_ENV", "dev"),
		Port:             envStr("APP_PORT", "3000"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           must("DB_HOST"),
		DBPort:           envStr("DB_PORT", "3306"),
		DBName:           must("DB_NAME"),
		DBMigrate:        envBool("DB_MIGRATE", false),
		JWTAccessSecret:  must("JWT_ACCESS_SECRET"),
		JWTRefreshSecret: must("JWT_REFRESH_SECRET"),
		AccessTTLMin:     envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:   envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:       envInt("BCRYPT_COST", 10),
		CORSOrigins:      splitList(envStr("CORS_ALLOW_ORIGINS", "*")),
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

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
