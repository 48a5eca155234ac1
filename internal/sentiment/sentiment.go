// Package sentiment memoizes sentiment scores for conversation text.
// The scorer itself is an external collaborator; this package only keys,
// caches and aggregates its output.
package sentiment

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"cakeday-bot/internal/cache"
)

// Scorer computes a sentiment score in [-1, 1] for a piece of text.
// Implementations may be network-backed; tests use a deterministic fake.
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(ctx context.Context, text string) (float64, error)

func (f ScorerFunc) Score(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

// Neutral is the scorer used when no external analyzer is wired in: every
// text scores 0, so prompts carry neutral labels.
func Neutral() Scorer {
	return ScorerFunc(func(ctx context.Context, text string) (float64, error) {
		return 0, nil
	})
}

// Label buckets a compound score the same way the bot's prompts expect:
// scores at or above 0.05 read as positive, at or below -0.05 as negative,
// everything between as neutral.
func Label(score float64) string {
	switch {
	case score >= 0.05:
		return "positive"
	case score <= -0.05:
		return "negative"
	default:
		return "neutral"
	}
}

// Fingerprint derives the cache key for a piece of text. Case is folded and
// whitespace runs collapse to single spaces so near-identical quoted text
// (a very common shape in threads) lands on one entry.
func Fingerprint(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	h := fnv.New64a()
	_, _ = h.Write([]byte(normalized))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Cache memoizes scorer results keyed by text fingerprint.
type Cache struct {
	scorer  Scorer
	entries *cache.TTLCache[string, float64]
	ttl     time.Duration
}

// NewCache wraps a scorer with TTL memoization. Conversational context goes
// stale, so ttl should be on the order of tens of minutes.
func NewCache(scorer Scorer, ttl, sweepInterval time.Duration) *Cache {
	return &Cache{
		scorer:  scorer,
		entries: cache.NewTTLCache[string, float64](ttl, sweepInterval),
		ttl:     ttl,
	}
}

// Score returns the memoized score for text, consulting the scorer at most
// once per fingerprint until the entry expires. Scorer failures are not
// cached.
func (c *Cache) Score(ctx context.Context, text string) (float64, error) {
	key := Fingerprint(text)
	if score, ok := c.entries.Get(key); ok {
		return score, nil
	}

	score, err := c.scorer.Score(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("score text: %w", err)
	}
	c.entries.Set(key, score, c.ttl)
	return score, nil
}

// Sweep removes expired entries, returning how many were dropped.
func (c *Cache) Sweep(at time.Time) int {
	return c.entries.Sweep(at)
}

// Stats summarizes the sentiment of a set of scored texts for prompt
// construction.
type Stats struct {
	Average     float64
	Trend       string
	ExtremeText string
	ExtremeTag  string
}

// Summarize computes aggregate sentiment over parallel slices of texts and
// their scores. It reports the average score, the trend label, and the
// single most extreme text (largest absolute score).
func Summarize(texts []string, scores []float64) Stats {
	if len(texts) == 0 || len(texts) != len(scores) {
		return Stats{Trend: "neutral"}
	}

	var sum float64
	extreme := 0
	for i, s := range scores {
		sum += s
		if abs(s) > abs(scores[extreme]) {
			extreme = i
		}
	}
	avg := sum / float64(len(scores))
	trend := "neutral"
	if avg > 0 {
		trend = "positive"
	} else if avg < 0 {
		trend = "negative"
	}
	return Stats{
		Average:     avg,
		Trend:       trend,
		ExtremeText: texts[extreme],
		ExtremeTag:  Label(scores[extreme]),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
