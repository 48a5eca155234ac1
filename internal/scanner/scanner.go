// Package scanner drives one pass over one subreddit: pull new posts,
// select cake-day candidates, consult the ledger and caches, generate a
// greeting and post it, then advance the scan cursor.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"cakeday-bot/internal/forum"
	"cakeday-bot/internal/generate"
	"cakeday-bot/internal/images"
	"cakeday-bot/internal/ledger"
	"cakeday-bot/internal/metrics"
	"cakeday-bot/internal/models"
	"cakeday-bot/internal/realtime"
	"cakeday-bot/internal/retry"
	"cakeday-bot/internal/selector"
	"cakeday-bot/internal/sentiment"
)

// maxPromptImages caps how many processed images ride along in a prompt.
const maxPromptImages = 2

// botCommentLookback bounds the karma estimate to recent bot activity.
const botCommentLookback = 100

// Config bounds one scan pass.
type Config struct {
	PostsPerScan int
	CallDelay    time.Duration
}

// Stats summarizes one completed pass.
type Stats struct {
	PostsScanned int
	Candidates   int
	Wished       int
}

// Orchestrator owns the per-scan wiring. Cache instances and the ledger
// are injected, never ambient: the caller decides what is shared between
// concurrently scanning subreddits.
type Orchestrator struct {
	client    forum.Client
	wishes    *ledger.WishLedger
	subs      *ledger.SubredditStore
	sentiment *sentiment.Cache
	images    *images.Cache
	generator generate.Generator
	selector  *selector.Selector
	metrics   *metrics.Store
	hub       *realtime.Hub
	retrier   *retry.Retrier
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
	cfg       Config
}

var now = time.Now

// New wires an Orchestrator. hub may be nil when no event feed is wanted.
func New(
	client forum.Client,
	wishes *ledger.WishLedger,
	subs *ledger.SubredditStore,
	sentimentCache *sentiment.Cache,
	imageCache *images.Cache,
	generator generate.Generator,
	sel *selector.Selector,
	store *metrics.Store,
	hub *realtime.Hub,
	retrier *retry.Retrier,
	logger *zap.Logger,
	cfg Config,
) *Orchestrator {
	if cfg.PostsPerScan < 1 {
		cfg.PostsPerScan = 25
	}
	return &Orchestrator{
		client:    client,
		wishes:    wishes,
		subs:      subs,
		sentiment: sentimentCache,
		images:    imageCache,
		generator: generator,
		selector:  sel,
		metrics:   store,
		hub:       hub,
		retrier:   retrier,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "post-reply",
		}),
		logger: logger,
		cfg:    cfg,
	}
}

// ScanSubreddit runs one pass, resuming from the stored cursor. Per-item
// failures are contained to the item; only storage failures abort the
// pass.
func (o *Orchestrator) ScanSubreddit(ctx context.Context, state models.Subreddit) (Stats, error) {
	started := now()
	var stats Stats

	band := o.karmaBand(ctx, state.Name)

	posts, err := o.client.FetchNewPosts(ctx, state.Name, o.cfg.PostsPerScan)
	if err != nil {
		return stats, fmt.Errorf("fetch new posts for %s: %w", state.Name, err)
	}

	newCursor := ""
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if newCursor == "" {
			newCursor = post.ID
		}
		if state.LastPostChecked != "" && post.ID == state.LastPostChecked {
			break
		}

		stats.PostsScanned++
		if err := o.scanPost(ctx, state.Name, post, band, &stats); err != nil {
			return stats, err
		}
		o.pause(ctx)
	}

	if newCursor != "" {
		if err := o.subs.AdvanceCursor(state.Name, newCursor); err != nil {
			return stats, err
		}
	}
	if err := o.subs.TouchScanTime(state.Name, now()); err != nil {
		return stats, err
	}

	o.metrics.Timing("scan.duration."+state.Name, now().Sub(started))
	o.metrics.Record("scan.posts."+state.Name, float64(stats.PostsScanned), 0)
	o.publish(realtime.Event{
		Type:      "scan_completed",
		Subreddit: state.Name,
		Detail:    fmt.Sprintf("%d posts, %d wished", stats.PostsScanned, stats.Wished),
		At:        now(),
	})
	return stats, nil
}

// scanPost selects candidates in one post and wishes the unwished ones.
// The returned error is non-nil only for storage failures.
func (o *Orchestrator) scanPost(ctx context.Context, subredditName string, post forum.Post, band generate.KarmaBand, stats *Stats) error {
	res, err := o.selector.Select(ctx, post)
	if err != nil {
		// One post's comment fetch failing is contained to that post.
		o.logger.Warn("skipping post after selection failure",
			zap.String("subreddit", subredditName),
			zap.String("post", post.ID),
			zap.Error(err))
		return nil
	}
	o.metrics.Record("selector.nodes", float64(res.NodesExpanded), 0)

	candidates := res.Candidates
	if c, ok := o.postAuthorCandidate(ctx, post, res.Roots); ok {
		candidates = append([]selector.Candidate{c}, candidates...)
	}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Candidates++
		wished, err := o.wishCandidate(ctx, subredditName, post, candidate, band)
		if err != nil {
			return err
		}
		if wished {
			stats.Wished++
		}
	}
	return nil
}

// postAuthorCandidate checks whether the post's own author celebrates
// today; the selector only covers comment authors.
func (o *Orchestrator) postAuthorCandidate(ctx context.Context, post forum.Post, roots []*selector.Node) (selector.Candidate, bool) {
	if post.Author == "" || post.Author == "[deleted]" {
		return selector.Candidate{}, false
	}
	createdAt, err := o.client.AccountCreatedAt(ctx, post.Author)
	if err != nil {
		o.logger.Warn("skipping post author after account lookup failure",
			zap.String("author", post.Author), zap.Error(err))
		return selector.Candidate{}, false
	}
	today := now()
	if !selector.IsCakeDay(createdAt, today) {
		return selector.Candidate{}, false
	}
	return selector.Candidate{
		Username:  post.Author,
		CreatedAt: createdAt,
		AgeYears:  today.Year() - createdAt.Year(),
		ParentID:  post.ID,
		Context:   selector.PostContext(post, roots),
	}, true
}

// wishCandidate posts one greeting: ledger check, sentiment annotation,
// image processing, generation, posting with retry/breaker, and finally
// the ledger insert. Only ledger storage failures propagate.
func (o *Orchestrator) wishCandidate(ctx context.Context, subredditName string, post forum.Post, candidate selector.Candidate, band generate.KarmaBand) (bool, error) {
	wished, err := o.wishes.HasWished(candidate.Username)
	if err != nil {
		return false, err
	}
	if wished {
		return false, nil
	}

	lines, stats := o.annotateContext(ctx, candidate.Context)
	prompt := generate.Prompt{
		Subreddit:        subredditName,
		PostTitle:        post.Title,
		Username:         candidate.Username,
		AgeYears:         candidate.AgeYears,
		Context:          lines,
		AverageSentiment: stats.Average,
		SentimentTrend:   stats.Trend,
		ExtremeTag:       stats.ExtremeTag,
		ExtremeText:      stats.ExtremeText,
		KarmaBand:        band,
		Images:           o.promptImages(ctx, post),
	}

	message := generate.Message(ctx, o.generator, prompt)
	if err := o.postReply(ctx, candidate.ParentID, message); err != nil {
		// The candidate is not marked wished, so the next pass retries
		// naturally if it still sees the comment.
		o.logger.Warn("giving up on reply after retries",
			zap.String("subreddit", subredditName),
			zap.String("username", candidate.Username),
			zap.Error(err))
		o.metrics.Record("reply.failed", 1, 0)
		return false, nil
	}

	if err := o.wishes.RecordWish(candidate.Username, now()); err != nil {
		if errors.Is(err, ledger.ErrDuplicateWish) {
			// A concurrent pass won the race; already handled.
			return false, nil
		}
		return false, err
	}

	o.metrics.Record("wishes", 1, 0)
	o.publish(realtime.Event{
		Type:      "wish_posted",
		Subreddit: subredditName,
		Username:  candidate.Username,
		At:        now(),
	})
	o.logger.Info("posted cake day wish",
		zap.String("subreddit", subredditName),
		zap.String("username", candidate.Username),
		zap.Int("age_years", candidate.AgeYears))
	return true, nil
}

// annotateContext scores every context line, attaching labels and
// producing the aggregate stats for the prompt. Scorer failures degrade to
// neutral rather than dropping the line.
func (o *Orchestrator) annotateContext(ctx context.Context, entries []selector.ContextEntry) ([]generate.ContextLine, sentiment.Stats) {
	lines := make([]generate.ContextLine, 0, len(entries))
	texts := make([]string, 0, len(entries))
	scores := make([]float64, 0, len(entries))
	for _, entry := range entries {
		score, err := o.sentiment.Score(ctx, entry.Text)
		if err != nil {
			o.logger.Debug("sentiment scoring failed, treating as neutral", zap.Error(err))
			score = 0
		}
		lines = append(lines, generate.ContextLine{
			Author:      entry.Author,
			Text:        entry.Text,
			Kind:        entry.Kind,
			Score:       entry.Score,
			Sentiment:   sentiment.Label(score),
			IsCandidate: entry.IsCandidate,
		})
		texts = append(texts, entry.Text)
		scores = append(scores, score)
	}
	return lines, sentiment.Summarize(texts, scores)
}

// promptImages resolves up to maxPromptImages of the post's images through
// the cache. Image failures are contained: the wish goes out without them.
func (o *Orchestrator) promptImages(ctx context.Context, post forum.Post) []generate.Image {
	var out []generate.Image
	for _, url := range post.ImageURLs {
		if len(out) >= maxPromptImages {
			break
		}
		processed, err := o.images.GetProcessed(ctx, url)
		if err != nil {
			o.logger.Warn("skipping image", zap.String("url", url), zap.Error(err))
			continue
		}
		out = append(out, generate.Image{Data: processed.Data, Format: processed.Format})
	}
	return out
}

// postReply sends the reply through the circuit breaker and the bounded
// retrier, pausing afterwards to respect the forum's rate limits.
func (o *Orchestrator) postReply(ctx context.Context, parentID, text string) error {
	defer o.pause(ctx)
	_, err := o.breaker.Execute(func() (any, error) {
		return nil, o.retrier.Run(ctx, func() error {
			return o.client.PostReply(ctx, parentID, text)
		})
	})
	return err
}

// karmaBand estimates how well the bot's messages land in this subreddit
// from its recent comment scores. Lookup failures degrade to the lowest
// band, which produces the most conservative tone.
func (o *Orchestrator) karmaBand(ctx context.Context, subredditName string) generate.KarmaBand {
	comments, err := o.client.RecentBotComments(ctx, subredditName, botCommentLookback)
	if err != nil || len(comments) == 0 {
		return generate.KarmaLow
	}
	total := 0
	for _, c := range comments {
		total += c.Score
	}
	return generate.BandForKarma(float64(total) / float64(len(comments)))
}

func (o *Orchestrator) pause(ctx context.Context) {
	if o.cfg.CallDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(o.cfg.CallDelay):
	}
}

func (o *Orchestrator) publish(event realtime.Event) {
	if o.hub != nil {
		o.hub.Publish(event)
	}
}
