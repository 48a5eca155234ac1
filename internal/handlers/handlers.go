// Package handlers implements the status/admin HTTP API: a read surface
// over the ledger and metrics, a manual scan trigger, and a websocket feed
// of scan events.
package handlers

import (
	"go.uber.org/zap"

	"cakeday-bot/internal/ledger"
	"cakeday-bot/internal/metrics"
	"cakeday-bot/internal/realtime"
)

// Handlers bundles the dependencies of the HTTP surface. Everything is
// injected; handlers never reach for ambient state.
type Handlers struct {
	adminUsername     string
	adminPasswordHash string

	wishes  *ledger.WishLedger
	subs    *ledger.SubredditStore
	metrics *metrics.Store
	hub     *realtime.Hub
	trigger chan<- string
	logger  *zap.Logger
}

// New wires the handler set. trigger receives subreddit names from the
// manual scan endpoint; a nil channel disables triggering.
func New(
	adminUsername, adminPasswordHash string,
	wishes *ledger.WishLedger,
	subs *ledger.SubredditStore,
	store *metrics.Store,
	hub *realtime.Hub,
	trigger chan<- string,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		adminUsername:     adminUsername,
		adminPasswordHash: adminPasswordHash,
		wishes:            wishes,
		subs:              subs,
		metrics:           store,
		hub:               hub,
		trigger:           trigger,
		logger:            logger,
	}
}
