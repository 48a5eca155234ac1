package forum

import (
	"context"
	"errors"
	"sync"
	"time"
)

// PostedReply records one PostReply call against the fake.
type PostedReply struct {
	ParentID string
	Text     string
}

// FakeClient is the deterministic in-memory Client used by tests. Scans
// against it never touch the network.
type FakeClient struct {
	mu sync.Mutex

	PostsBySubreddit map[string][]Post
	TopLevelByPost   map[string][]Comment
	RepliesByComment map[string][]Comment
	AccountCreated   map[string]time.Time
	BotComments      map[string][]Comment

	// ReplyFailures fails FetchReplies for specific comment ids.
	ReplyFailures map[string]error

	// PostReplyFailures fails the first N PostReply calls with a
	// transient error before letting calls succeed.
	PostReplyFailures int

	Posted []PostedReply

	RepliesFetched int
	AccountLookups int
	PostReplyCalls int
}

// NewFakeClient builds an empty fake.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		PostsBySubreddit: make(map[string][]Post),
		TopLevelByPost:   make(map[string][]Comment),
		RepliesByComment: make(map[string][]Comment),
		AccountCreated:   make(map[string]time.Time),
		BotComments:      make(map[string][]Comment),
		ReplyFailures:    make(map[string]error),
	}
}

func (f *FakeClient) FetchNewPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	posts := f.PostsBySubreddit[subreddit]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return append([]Post(nil), posts...), nil
}

func (f *FakeClient) FetchTopLevelComments(ctx context.Context, postID string, limit int) ([]Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	comments := f.TopLevelByPost[postID]
	if limit > 0 && len(comments) > limit {
		comments = comments[:limit]
	}
	return append([]Comment(nil), comments...), nil
}

func (f *FakeClient) FetchReplies(ctx context.Context, commentID string, limit int) ([]Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RepliesFetched++
	if err, ok := f.ReplyFailures[commentID]; ok {
		return nil, err
	}
	replies := f.RepliesByComment[commentID]
	if limit > 0 && len(replies) > limit {
		replies = replies[:limit]
	}
	return append([]Comment(nil), replies...), nil
}

func (f *FakeClient) AccountCreatedAt(ctx context.Context, username string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AccountLookups++
	createdAt, ok := f.AccountCreated[username]
	if !ok {
		return time.Time{}, Transient(errors.New("account lookup failed"))
	}
	return createdAt, nil
}

func (f *FakeClient) PostReply(ctx context.Context, parentID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PostReplyCalls++
	if f.PostReplyFailures > 0 {
		f.PostReplyFailures--
		return Transient(errors.New("reply rejected"))
	}
	f.Posted = append(f.Posted, PostedReply{ParentID: parentID, Text: text})
	return nil
}

func (f *FakeClient) RecentBotComments(ctx context.Context, subreddit string, limit int) ([]Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	comments := f.BotComments[subreddit]
	if limit > 0 && len(comments) > limit {
		comments = comments[:limit]
	}
	return append([]Comment(nil), comments...), nil
}

var _ Client = (*FakeClient)(nil)
