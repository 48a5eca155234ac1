package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cakeday-bot/internal/config"
	"cakeday-bot/internal/database"
	"cakeday-bot/internal/forum"
	"cakeday-bot/internal/generate"
	"cakeday-bot/internal/handlers"
	"cakeday-bot/internal/images"
	"cakeday-bot/internal/ledger"
	"cakeday-bot/internal/metrics"
	"cakeday-bot/internal/realtime"
	"cakeday-bot/internal/retry"
	"cakeday-bot/internal/routes"
	"cakeday-bot/internal/scanner"
	"cakeday-bot/internal/selector"
	"cakeday-bot/internal/sentiment"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("bot exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg := config.Load()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}

	wishes := ledger.NewWishLedger(db)
	subs := ledger.NewSubredditStore(db)
	if err := subs.Ensure(cfg.Subreddits); err != nil {
		return err
	}

	client, err := newForumClient(cfg, logger)
	if err != nil {
		return err
	}

	sentimentCache := sentiment.NewCache(sentiment.Neutral(), cfg.SentimentTTL, cfg.SweepInterval)
	imageCache := images.NewCache(images.HTTPFetcher(nil), cfg.ImageMaxEdge, cfg.ImageTTL, cfg.SweepInterval)
	store := metrics.NewStore(cfg.MetricTTL)
	hub := realtime.NewHub()

	sel := selector.New(client, selector.Config{
		Budget:    cfg.CommentBudget,
		BranchCap: cfg.BranchCap,
	}, logger)

	orch := scanner.New(
		client,
		wishes,
		subs,
		sentimentCache,
		imageCache,
		generate.TemplateGenerator{},
		sel,
		store,
		hub,
		retry.New(cfg.RetryAttempts, cfg.RetryBaseDelay, 30*time.Second),
		logger,
		scanner.Config{
			PostsPerScan: cfg.PostsPerScan,
			CallDelay:    cfg.CallDelay,
		},
	)

	trigger := make(chan string, 1)
	h := handlers.New(
		cfg.AdminUsername, cfg.AdminPasswordHash,
		wishes, subs, store, hub, trigger, logger,
	)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: routes.Setup(h),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("admin API listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return runScheduler(ctx, orch, subs, store, cfg, trigger, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// runScheduler drives the periodic pass over every tracked subreddit and
// serves out-of-schedule triggers from the admin API. Sample pruning rides
// the same loop on the sweep cadence.
func runScheduler(ctx context.Context, orch *scanner.Orchestrator, subs *ledger.SubredditStore, store *metrics.Store, cfg config.Config, trigger <-chan string, logger *zap.Logger) error {
	scanAll(ctx, orch, subs, logger)

	ticker := time.NewTicker(cfg.ScanInterval)
	defer ticker.Stop()
	sweep := time.NewTicker(cfg.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			scanAll(ctx, orch, subs, logger)
		case name := <-trigger:
			scanOne(ctx, orch, subs, name, logger)
		case <-sweep.C:
			store.Prune(time.Now())
		}
	}
}

// scanAll runs one pass over every tracked subreddit, concurrently. A
// failing subreddit never stops the others.
func scanAll(ctx context.Context, orch *scanner.Orchestrator, subs *ledger.SubredditStore, logger *zap.Logger) {
	states, err := subs.States()
	if err != nil {
		logger.Error("listing subreddits failed", zap.Error(err))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, state := range states {
		state := state
		g.Go(func() error {
			stats, err := orch.ScanSubreddit(gctx, state)
			if err != nil {
				logger.Error("scan failed",
					zap.String("subreddit", state.Name),
					zap.Error(err))
				return nil
			}
			logger.Info("scan complete",
				zap.String("subreddit", state.Name),
				zap.Int("posts", stats.PostsScanned),
				zap.Int("candidates", stats.Candidates),
				zap.Int("wished", stats.Wished))
			return nil
		})
	}
	g.Wait()
}

func scanOne(ctx context.Context, orch *scanner.Orchestrator, subs *ledger.SubredditStore, name string, logger *zap.Logger) {
	states, err := subs.States()
	if err != nil {
		logger.Error("listing subreddits failed", zap.Error(err))
		return
	}
	for _, state := range states {
		if state.Name != name {
			continue
		}
		if _, err := orch.ScanSubreddit(ctx, state); err != nil {
			logger.Error("triggered scan failed", zap.String("subreddit", name), zap.Error(err))
		}
		return
	}
	logger.Warn("triggered scan for untracked subreddit", zap.String("subreddit", name))
}

// newForumClient builds the forum client for this run. The snapshot
// replay client is the only one shipped; a live API client plugs in here.
func newForumClient(cfg config.Config, logger *zap.Logger) (forum.Client, error) {
	path := os.Getenv("CAKEDAY_SNAPSHOT")
	if path == "" {
		path = "snapshot.json"
	}
	logger.Info("using snapshot replay forum client", zap.String("path", path))
	return forum.NewReplayClient(path)
}
