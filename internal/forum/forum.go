// Package forum defines the bot's view of the discussion platform. The
// real network client lives outside the core; everything here is consumed
// through the Client interface so tests run on deterministic fakes.
package forum

import (
	"context"
	"time"
)

// Post is one submission in a subreddit's new-post feed.
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Author       string    `json:"author"`
	Subreddit    string    `json:"subreddit"`
	URL          string    `json:"url"`
	ImageURLs    []string  `json:"image_urls,omitempty"`
	Score        int       `json:"score"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Comment is one node of a post's comment forest. Children are not
// embedded; they materialize lazily through Client.FetchReplies when the
// traversal budget allows.
type Comment struct {
	ID         string    `json:"id"`
	ParentID   string    `json:"parent_id"`
	Author     string    `json:"author"`
	Body       string    `json:"body"`
	Score      int       `json:"score"`
	ReplyCount int       `json:"reply_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Client is the forum API surface the core depends on.
type Client interface {
	// FetchNewPosts returns up to limit posts from the subreddit's new
	// feed, newest first.
	FetchNewPosts(ctx context.Context, subreddit string, limit int) ([]Post, error)

	// FetchTopLevelComments returns a post's top-level comments in the
	// forum's native order, without expanding collapsed subtrees.
	FetchTopLevelComments(ctx context.Context, postID string, limit int) ([]Comment, error)

	// FetchReplies returns up to limit direct replies of a comment.
	FetchReplies(ctx context.Context, commentID string, limit int) ([]Comment, error)

	// AccountCreatedAt returns when a user's account was created.
	AccountCreatedAt(ctx context.Context, username string) (time.Time, error)

	// PostReply posts text as a reply under the given post or comment id.
	PostReply(ctx context.Context, parentID, text string) error

	// RecentBotComments returns the bot's own recent comments in a
	// subreddit, used to gauge how its messages have been received.
	RecentBotComments(ctx context.Context, subreddit string, limit int) ([]Comment, error)
}
