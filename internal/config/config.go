package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config collects every tunable the bot reads at startup. Values come from
// environment variables with sensible defaults so a bare `go run` works
// against a local sqlite file.
type Config struct {
	// DatabasePath is the sqlite file backing the wish ledger and
	// subreddit cursors.
	DatabasePath string

	// Subreddits seeded into the database on startup if not present.
	Subreddits []string

	// ScanInterval is the pause between full passes over all subreddits.
	ScanInterval time.Duration

	// PostsPerScan bounds how many new posts one pass inspects per subreddit.
	PostsPerScan int

	// SentimentTTL is how long memoized sentiment scores stay valid.
	SentimentTTL time.Duration

	// ImageTTL is how long processed images stay valid. Processed images
	// are stable per URL, so this is much longer than SentimentTTL.
	ImageTTL time.Duration

	// MetricTTL is how long performance samples are retained.
	MetricTTL time.Duration

	// SweepInterval is the cadence of expired-entry cleanup across all caches.
	SweepInterval time.Duration

	// CommentBudget caps how many comment nodes one post scan may materialize.
	CommentBudget int

	// BranchCap caps how many top-level comment branches are retained.
	BranchCap int

	// ImageMaxEdge caps the long edge of processed images, in pixels.
	ImageMaxEdge int

	// CallDelay is the fixed pause between consecutive forum API calls.
	CallDelay time.Duration

	// RetryAttempts and RetryBaseDelay shape the backoff applied to
	// transient forum failures.
	RetryAttempts  int
	RetryBaseDelay time.Duration

	// HTTPAddr is the listen address of the status/admin API.
	HTTPAddr string

	// AdminUsername and AdminPasswordHash guard the admin API. The hash
	// is a bcrypt digest; an empty hash disables login entirely.
	AdminUsername     string
	AdminPasswordHash string
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		DatabasePath:      getEnv("CAKEDAY_DB_PATH", "cakeday.db"),
		Subreddits:        splitList(getEnv("CAKEDAY_SUBREDDITS", "")),
		ScanInterval:      getDuration("CAKEDAY_SCAN_INTERVAL", 15*time.Minute),
		PostsPerScan:      getInt("CAKEDAY_POSTS_PER_SCAN", 25),
		SentimentTTL:      getDuration("CAKEDAY_SENTIMENT_TTL", 30*time.Minute),
		ImageTTL:          getDuration("CAKEDAY_IMAGE_TTL", 6*time.Hour),
		MetricTTL:         getDuration("CAKEDAY_METRIC_TTL", 24*time.Hour),
		SweepInterval:     getDuration("CAKEDAY_SWEEP_INTERVAL", 5*time.Minute),
		CommentBudget:     getInt("CAKEDAY_COMMENT_BUDGET", 500),
		BranchCap:         getInt("CAKEDAY_BRANCH_CAP", 50),
		ImageMaxEdge:      getInt("CAKEDAY_IMAGE_MAX_EDGE", 768),
		CallDelay:         getDuration("CAKEDAY_CALL_DELAY", 2*time.Second),
		RetryAttempts:     getInt("CAKEDAY_RETRY_ATTEMPTS", 3),
		RetryBaseDelay:    getDuration("CAKEDAY_RETRY_BASE_DELAY", time.Second),
		HTTPAddr:          getEnv("CAKEDAY_HTTP_ADDR", ":8008"),
		AdminUsername:     getEnv("CAKEDAY_ADMIN_USER", "admin"),
		AdminPasswordHash: getEnv("CAKEDAY_ADMIN_PASSWORD_HASH", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
