// Package selector walks a post's comment forest under a fixed node
// budget and picks out users celebrating their cake day, together with the
// conversation context needed to write them something relevant.
package selector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cakeday-bot/internal/forum"
)

// maxContextParents and maxContextSiblings bound the context window handed
// to the prompt builder; bodies are truncated to maxContextChars.
const (
	maxContextParents  = 5
	maxContextSiblings = 5
	maxContextChars    = 250
)

// Node is one materialized comment with its position in the tree.
type Node struct {
	Comment  forum.Comment
	Depth    int
	Parent   *Node
	Children []*Node
}

// ContextEntry is one piece of surrounding conversation for a candidate.
type ContextEntry struct {
	Author      string
	Text        string
	Kind        string // "post" or "comment"
	Score       int
	IsCandidate bool
}

// Candidate is a cake-day user found in the expanded tree.
type Candidate struct {
	Username  string
	CreatedAt time.Time
	AgeYears  int
	ParentID  string // where the reply should go
	Context   []ContextEntry
}

// Result is the outcome of one post scan.
type Result struct {
	Candidates      []Candidate
	Roots           []*Node
	NodesExpanded   int
	BudgetExhausted bool
	BranchesDropped int // branches past the cap, never looked at
}

// Config bounds one post scan.
type Config struct {
	// Budget caps how many comment nodes may be materialized in total,
	// shared across all branches of the post.
	Budget int

	// BranchCap caps how many top-level branches are retained, in the
	// forum's native order.
	BranchCap int
}

// Selector runs budgeted traversals against a forum client.
type Selector struct {
	client forum.Client
	cfg    Config
	logger *zap.Logger
}

var now = time.Now

// New builds a Selector.
func New(client forum.Client, cfg Config, logger *zap.Logger) *Selector {
	if cfg.Budget < 1 {
		cfg.Budget = 1
	}
	if cfg.BranchCap < 1 {
		cfg.BranchCap = 1
	}
	return &Selector{client: client, cfg: cfg, logger: logger}
}

// Select expands the post's comment forest under the budget and returns
// cake-day candidates with their context windows. Expansion is greedy and
// order-dependent: branches are taken in native order and earlier branches
// consume budget first, so later branches may receive zero expansion
// (first-branches-win, a deliberate trade-off on high-traffic posts).
func (s *Selector) Select(ctx context.Context, post forum.Post) (Result, error) {
	roots, dropped, expanded, exhausted, err := s.expand(ctx, post)
	if err != nil {
		return Result{}, err
	}

	candidates := s.filter(ctx, post, roots)
	return Result{
		Candidates:      candidates,
		Roots:           roots,
		NodesExpanded:   expanded,
		BudgetExhausted: exhausted,
		BranchesDropped: dropped,
	}, nil
}

// expand performs LoadTopLevel and ExpandBudgeted: fetch top-level
// branches without opening collapsed subtrees, truncate to the branch cap,
// then expand descendants through an explicit work queue with a shared
// remaining-budget counter decremented once per materialized node.
func (s *Selector) expand(ctx context.Context, post forum.Post) (roots []*Node, dropped, expanded int, exhausted bool, err error) {
	topLevel, err := s.client.FetchTopLevelComments(ctx, post.ID, s.cfg.BranchCap)
	if err != nil {
		return nil, 0, 0, false, err
	}
	if len(topLevel) > s.cfg.BranchCap {
		dropped = len(topLevel) - s.cfg.BranchCap
		topLevel = topLevel[:s.cfg.BranchCap]
	}

	remaining := s.cfg.Budget
	seen := make(map[string]struct{})

	for _, c := range topLevel {
		if remaining == 0 {
			exhausted = true
			break
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		remaining--
		expanded++
		roots = append(roots, &Node{Comment: c, Depth: 0})
	}

	// Branch by branch, in order. Within a branch the queue is FIFO, so
	// expansion is breadth-first under that branch.
	for _, root := range roots {
		if remaining == 0 {
			exhausted = true
			break
		}
		queue := []*Node{root}
		for len(queue) > 0 && remaining > 0 {
			n := queue[0]
			queue = queue[1:]
			if n.Comment.ReplyCount == 0 {
				continue
			}

			replies, ferr := s.client.FetchReplies(ctx, n.Comment.ID, remaining)
			if ferr != nil {
				// A fetch failure abandons this branch only; whatever was
				// materialized so far stays in the result.
				s.logger.Warn("abandoning branch after fetch failure",
					zap.String("post", post.ID),
					zap.String("comment", n.Comment.ID),
					zap.Error(ferr))
				break
			}
			for _, reply := range replies {
				if remaining == 0 {
					exhausted = true
					break
				}
				if _, dup := seen[reply.ID]; dup {
					// Defensive bound: a cyclic-looking tree cannot grow
					// the node count past the budget.
					continue
				}
				seen[reply.ID] = struct{}{}
				remaining--
				expanded++
				child := &Node{Comment: reply, Depth: n.Depth + 1, Parent: n}
				n.Children = append(n.Children, child)
				queue = append(queue, child)
			}
		}
	}
	if remaining == 0 {
		exhausted = true
	}
	return roots, dropped, expanded, exhausted, nil
}

// filter walks the expanded forest and keeps authors whose cake day is
// today. Account lookups are memoized per scan and a user is reported at
// most once per post; lookup failures skip that author only.
func (s *Selector) filter(ctx context.Context, post forum.Post, roots []*Node) []Candidate {
	today := now()
	lookups := make(map[string]time.Time)
	claimed := make(map[string]struct{})
	var candidates []Candidate

	var walk func(n *Node)
	walk = func(n *Node) {
		author := n.Comment.Author
		if author != "" && author != "[deleted]" {
			if _, done := claimed[author]; !done {
				createdAt, ok := lookups[author]
				if !ok {
					var err error
					createdAt, err = s.client.AccountCreatedAt(ctx, author)
					if err != nil {
						s.logger.Warn("skipping author after account lookup failure",
							zap.String("author", author), zap.Error(err))
						claimed[author] = struct{}{}
						createdAt = time.Time{}
					}
					lookups[author] = createdAt
				}
				if !createdAt.IsZero() && IsCakeDay(createdAt, today) {
					claimed[author] = struct{}{}
					candidates = append(candidates, Candidate{
						Username:  author,
						CreatedAt: createdAt,
						AgeYears:  ageYears(createdAt, today),
						ParentID:  n.Comment.ID,
						Context:   s.contextWindow(post, n, roots),
					})
				}
			}
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return candidates
}

// IsCakeDay reports whether today is the anniversary of createdAt: the
// account is at least one year old and the calendar month and day match.
// The comparison is literal, so Feb-29 accounts only match in leap years.
func IsCakeDay(createdAt, today time.Time) bool {
	if createdAt.AddDate(1, 0, 0).After(today) {
		return false
	}
	return createdAt.Month() == today.Month() && createdAt.Day() == today.Day()
}

func ageYears(createdAt, today time.Time) int {
	years := today.Year() - createdAt.Year()
	if years < 1 {
		return 0
	}
	return years
}

// contextWindow assembles the conversation surrounding a candidate node:
// the post itself, up to five ancestor comments, the candidate's comment,
// and up to five siblings, with bodies truncated for prompt size.
func (s *Selector) contextWindow(post forum.Post, n *Node, roots []*Node) []ContextEntry {
	var parents []ContextEntry
	for p := n.Parent; p != nil && len(parents) < maxContextParents; p = p.Parent {
		parents = append([]ContextEntry{commentEntry(p.Comment, false)}, parents...)
	}

	postText := post.Body
	if postText == "" {
		postText = "(no text content)"
	}
	window := []ContextEntry{{
		Author:      post.Author,
		Text:        truncate(postText),
		Kind:        "post",
		Score:       post.Score,
		IsCandidate: post.Author == n.Comment.Author,
	}}
	window = append(window, parents...)
	window = append(window, commentEntry(n.Comment, true))

	siblings := siblingsOf(n, roots)
	added := 0
	for _, sib := range siblings {
		if sib == n || added >= maxContextSiblings {
			continue
		}
		window = append(window, commentEntry(sib.Comment, false))
		added++
	}
	return window
}

// PostContext builds the context window for a candidate who authored the
// post itself: the post body plus its first top-level comments.
func PostContext(post forum.Post, roots []*Node) []ContextEntry {
	postText := post.Body
	if postText == "" {
		postText = "(no text content)"
	}
	window := []ContextEntry{{
		Author:      post.Author,
		Text:        truncate(postText),
		Kind:        "post",
		Score:       post.Score,
		IsCandidate: true,
	}}
	for i, root := range roots {
		if i >= 2*maxContextSiblings {
			break
		}
		entry := commentEntry(root.Comment, false)
		entry.IsCandidate = root.Comment.Author == post.Author
		window = append(window, entry)
	}
	return window
}

func commentEntry(c forum.Comment, candidate bool) ContextEntry {
	author := c.Author
	if author == "" {
		author = "[deleted]"
	}
	body := c.Body
	if body == "" {
		body = "(no text content)"
	}
	return ContextEntry{
		Author:      author,
		Text:        truncate(body),
		Kind:        "comment",
		Score:       c.Score,
		IsCandidate: candidate,
	}
}

// siblingsOf returns the nodes sharing the candidate's parent; for a
// top-level comment that is the other retained branches.
func siblingsOf(n *Node, roots []*Node) []*Node {
	if n.Parent != nil {
		return n.Parent.Children
	}
	return roots
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxContextChars {
		return text
	}
	return string(runes[:maxContextChars])
}
