package config // package config loads application configuration from environment variables

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Defaults match a single-process local
// deployment (port 8000, MySQL database "e-content", a fixed JWT secret and
// one shared database connection).
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBMaxOpenConns int    // connection pool size; 1 keeps a single shared connection
	DBMigrate      bool   // apply embedded migrations at startup

	JWTSecret    string // secret used to sign JWTs
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing

	CORSOrigins []string // origins allowed to call the API with credentials

	// DocsRequireAuth wraps the /data routes with bearer authentication.
	// Off by default: the document board has always been reachable without a token.
	DocsRequireAuth bool
	// StrictUpdateValidation makes update require and persist subject the
	// same way create does.  Off by default: update leaves subject alone.
	StrictUpdateValidation bool
	// CleanupOrphanUploads deletes a freshly stored upload when the row
	// insert that should reference it fails.
	CleanupOrphanUploads bool

	LogLevel  string // debug, info, warn or error
	LogFormat string // text or json

	Storage   StorageConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// Load reads configuration values from the environment and returns a
// Config.  A .env file in the working directory is loaded first when
// present; variables already set in the process environment win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config: could not load .env", "err", err)
	}
	return Config{
		Env:  envStr("APP_ENV", "dev"),
		Port: envStr("APP_PORT", "8000"),

		DBUser:         envStr("DB_USER", "root"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         envStr("DB_HOST", "localhost"),
		DBPort:         envStr("DB_PORT", "3306"),
		DBName:         envStr("DB_NAME", "e-content"),
		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 1),
		DBMigrate:      envBool("DB_MIGRATE", true),

		JWTSecret:    envStr("JWT_SECRET", "secret"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:   envInt("BCRYPT_COST", 10),

		CORSOrigins: splitList(envStr("CORS_ORIGINS", "http://localhost:3000")),

		DocsRequireAuth:        envBool("DOCS_REQUIRE_AUTH", false),
		StrictUpdateValidation: envBool("STRICT_UPDATE_VALIDATION", false),
		CleanupOrphanUploads:   envBool("CLEANUP_ORPHAN_UPLOADS", true),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "text"),

		Storage:   LoadStorageConfig(),
		RateLimit: LoadRateLimitConfig(),
		Cache:     LoadCacheConfig(),
	}
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

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}
