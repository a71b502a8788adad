package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// TierBucket is one bucket of the cluster → overall weighting scheme.
type TierBucket struct {
	Size   int
	Weight float64
}

// Config holds all application configuration. Rating parameters are read
// here and injected into the scoring and rankings packages; the algorithm
// bodies never hard-code them.
type Config struct {
	DatabaseURL  string
	ServerPort   int
	JWTSecretKey string
	AdminKeyHash string // bcrypt hash of the admin API key

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	StartingElo           int
	ProvisionalK          int
	StandardK             int
	ProvisionalThreshold  int
	LeaderboardBasePoints int
	PrestigeWeights       []float64
	DefaultPrestigeWeight float64
	TierBuckets           []TierBucket

	ProposalTTL        time.Duration
	SweepInterval      time.Duration
	ScoreRetryAttempts int
	CacheTTL           time.Duration
}

// Load reads configuration from environment variables, optionally seeded
// from a .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		ServerPort:   port,
		JWTSecretKey: jwtKey,
		AdminKeyHash: os.Getenv("ADMIN_KEY_HASH"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),

		DefaultPrestigeWeight: 1.0,
	}

	if cfg.StartingElo, err = getEnvInt("RATING_STARTING_ELO", 1000); err != nil {
		return nil, err
	}
	if cfg.ProvisionalK, err = getEnvInt("RATING_PROVISIONAL_K", 40); err != nil {
		return nil, err
	}
	if cfg.StandardK, err = getEnvInt("RATING_STANDARD_K", 20); err != nil {
		return nil, err
	}
	if cfg.ProvisionalThreshold, err = getEnvInt("RATING_PROVISIONAL_THRESHOLD", 5); err != nil {
		return nil, err
	}
	if cfg.LeaderboardBasePoints, err = getEnvInt("LEADERBOARD_BASE_POINTS", 100); err != nil {
		return nil, err
	}
	if cfg.ScoreRetryAttempts, err = getEnvInt("SCORE_RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}

	if cfg.PrestigeWeights, err = getEnvFloats("RATING_PRESTIGE_WEIGHTS", []float64{4.0, 2.5, 1.5}); err != nil {
		return nil, err
	}
	if cfg.TierBuckets, err = getEnvBuckets("RATING_TIER_BUCKETS", []TierBucket{
		{Size: 10, Weight: 0.60},
		{Size: 5, Weight: 0.25},
		{Size: 5, Weight: 0.15},
	}); err != nil {
		return nil, err
	}

	if cfg.ProposalTTL, err = getEnvDuration("PROPOSAL_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getEnvDuration("PROPOSAL_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvDuration("RANKINGS_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.ProvisionalK <= 0 || cfg.StandardK <= 0 {
		return nil, fmt.Errorf("K-factors must be positive (provisional=%d standard=%d)", cfg.ProvisionalK, cfg.StandardK)
	}
	if cfg.ProvisionalThreshold < 0 {
		return nil, fmt.Errorf("RATING_PROVISIONAL_THRESHOLD must not be negative, got %d", cfg.ProvisionalThreshold)
	}

	return cfg, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return d, nil
}

// getEnvFloats parses a comma-separated float list, e.g. "4.0,2.5,1.5".
func getEnvFloats(key string, fallback []float64) ([]float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s environment variable: %w", key, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// getEnvBuckets parses a "size:weight" list, e.g. "10:0.60,5:0.25,5:0.15".
func getEnvBuckets(key string, fallback []TierBucket) ([]TierBucket, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]TierBucket, 0, len(parts))
	for _, p := range parts {
		sizeWeight := strings.SplitN(strings.TrimSpace(p), ":", 2)
		if len(sizeWeight) != 2 {
			return nil, fmt.Errorf("invalid %s environment variable: expected size:weight, got %q", key, p)
		}
		size, err := strconv.Atoi(sizeWeight[0])
		if err != nil {
			return nil, fmt.Errorf("invalid %s environment variable: %w", key, err)
		}
		weight, err := strconv.ParseFloat(sizeWeight[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s environment variable: %w", key, err)
		}
		out = append(out, TierBucket{Size: size, Weight: weight})
	}
	return out, nil
}
