package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/bp-tabulation/tabulation"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	LogLevel     slog.Level

	CORSAllowedOrigins   []string
	PublicRateLimitRPS   float64
	PublicRateLimitBurst int

	TeamMemberCount        int
	Format                 tabulation.Format
	StandingsAuditInterval time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// ArchiveEnabled сообщает, заданы ли все параметры R2.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию через переданную функцию чтения переменных.
func FromEnv(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intFromEnv(getenv, "SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	var level slog.Level
	if raw := getenv("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
		}
	}

	origins := []string{"*"}
	if raw := getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	rps := 20.0
	if raw := getenv("PUBLIC_RATE_LIMIT_RPS"); raw != "" {
		rps, err = strconv.ParseFloat(raw, 64)
		if err != nil || rps <= 0 {
			return nil, fmt.Errorf("invalid PUBLIC_RATE_LIMIT_RPS environment variable: %q", raw)
		}
	}
	burst, err := intFromEnv(getenv, "PUBLIC_RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, err
	}

	memberCount, err := intFromEnv(getenv, "TEAM_MEMBER_COUNT", 2)
	if err != nil {
		return nil, err
	}
	if memberCount < 1 {
		return nil, fmt.Errorf("TEAM_MEMBER_COUNT must be positive, got %d", memberCount)
	}

	format := tabulation.DefaultFormat()
	if path := getenv("TOURNAMENT_FORMAT_FILE"); path != "" {
		format, err = LoadFormat(path)
		if err != nil {
			return nil, err
		}
	}

	var auditInterval time.Duration
	if raw := getenv("STANDINGS_AUDIT_INTERVAL"); raw != "" {
		auditInterval, err = time.ParseDuration(raw)
		if err != nil || auditInterval <= 0 {
			return nil, fmt.Errorf("invalid STANDINGS_AUDIT_INTERVAL environment variable: %q", raw)
		}
	}

	cfg := &Config{
		DatabaseURL:            dbURL,
		JWTSecretKey:           jwtKey,
		ServerPort:             port,
		LogLevel:               level,
		CORSAllowedOrigins:     origins,
		PublicRateLimitRPS:     rps,
		PublicRateLimitBurst:   burst,
		TeamMemberCount:        memberCount,
		Format:                 format,
		StandingsAuditInterval: auditInterval,
		R2AccountID:            getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:          getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:      getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:           getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:        getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

func intFromEnv(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return value, nil
}
