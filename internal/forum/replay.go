package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Snapshot is the JSON shape of a captured forum state. It is what a
// ReplayClient serves: posts per subreddit, comment forests keyed by
// parent, and account creation times.
type Snapshot struct {
	Posts    map[string][]Post    `json:"posts"`
	TopLevel map[string][]Comment `json:"top_level"`
	Replies  map[string][]Comment `json:"replies"`
	Accounts map[string]time.Time `json:"accounts"`
	Bot      map[string][]Comment `json:"bot_comments,omitempty"`
}

// ReplayClient serves a Snapshot through the Client interface. Replies
// are written to a local log instead of any network, which makes it the
// client for development runs and demos.
type ReplayClient struct {
	mu   sync.Mutex
	snap Snapshot

	posted []PostedReply
}

// NewReplayClient loads a snapshot file.
func NewReplayClient(path string) (*ReplayClient, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return &ReplayClient{snap: snap}, nil
}

func (r *ReplayClient) FetchNewPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	posts := r.snap.Posts[subreddit]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return append([]Post(nil), posts...), nil
}

func (r *ReplayClient) FetchTopLevelComments(ctx context.Context, postID string, limit int) ([]Comment, error) {
	comments := r.snap.TopLevel[postID]
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return append([]Comment(nil), comments...), nil
}

func (r *ReplayClient) FetchReplies(ctx context.Context, commentID string, limit int) ([]Comment, error) {
	comments := r.snap.Replies[commentID]
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return append([]Comment(nil), comments...), nil
}

func (r *ReplayClient) AccountCreatedAt(ctx context.Context, username string) (time.Time, error) {
	created, ok := r.snap.Accounts[username]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown account %q", username)
	}
	return created, nil
}

func (r *ReplayClient) PostReply(ctx context.Context, parentID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posted = append(r.posted, PostedReply{ParentID: parentID, Text: text})
	return nil
}

func (r *ReplayClient) RecentBotComments(ctx context.Context, subreddit string, limit int) ([]Comment, error) {
	comments := r.snap.Bot[subreddit]
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return append([]Comment(nil), comments...), nil
}

// Posted returns the replies recorded so far.
func (r *ReplayClient) Posted() []PostedReply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PostedReply(nil), r.posted...)
}
