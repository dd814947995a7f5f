// Package config loads the service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Parsing  ParsingConfig
	OCR      OCRConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Jobx     JobxConfig
}

type ServerConfig struct {
	Port            string
	Environment     string
	BodyLimitBytes  int
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	DSN    string
}

type StorageConfig struct {
	// Mode is "local" or "s3".
	Mode      string
	LocalPath string
	S3Bucket  string
	AWSRegion string
}

type AuthConfig struct {
	// JWTSecret enables bearer-token auth on the API when set.
	JWTSecret string
	Issuer    string
}

// Load reads every section from the environment.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			BodyLimitBytes:  getEnvInt("SERVER_BODY_LIMIT_BYTES", 64<<20),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Parsing: loadParsingConfig(),
		OCR:     loadOCRConfig(),
		Cache:   loadCacheConfig(),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "postgres"),
			DSN:    getEnv("DATABASE_URL", ""),
		},
		Storage: StorageConfig{
			Mode:      getEnv("STORAGE_MODE", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "."),
			S3Bucket:  getEnv("STORAGE_S3_BUCKET", ""),
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", "hybridparse"),
		},
		Jobx: loadJobxConfig(),
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or plain integers read in
// the unit implied by the key suffix (_SECONDS) or milliseconds otherwise.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if strings.HasSuffix(key, "_SECONDS") {
			return time.Duration(n) * time.Second
		}
		return time.Duration(n) * time.Millisecond
	}
	return fallback
}

func getEnvStringSlice(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
