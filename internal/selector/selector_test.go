package selector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cakeday-bot/internal/forum"
)

func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	now = func() time.Time { return at }
	t.Cleanup(func() { now = time.Now })
}

func comment(id, author string, replyCount int) forum.Comment {
	return forum.Comment{ID: id, Author: author, Body: "body of " + id, ReplyCount: replyCount}
}

func newSelector(client forum.Client, budget, branchCap int) *Selector {
	return New(client, Config{Budget: budget, BranchCap: branchCap}, zap.NewNop())
}

func TestIsCakeDay(t *testing.T) {
	createdAt := time.Date(2019, 3, 14, 9, 0, 0, 0, time.UTC)

	// Anniversary: flagged.
	require.True(t, IsCakeDay(createdAt, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)))
	// The day after: not flagged.
	require.False(t, IsCakeDay(createdAt, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))
	// Same month/day but the account is younger than a year: not flagged.
	young := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	require.False(t, IsCakeDay(young, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)))
	// Exactly one year old counts.
	require.True(t, IsCakeDay(young, time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)))
}

func TestSelect_FindsCakeDayCandidate(t *testing.T) {
	freezeTime(t, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))

	client := forum.NewFakeClient()
	client.TopLevelByPost["p1"] = []forum.Comment{
		comment("c1", "alice", 1),
		comment("c2", "bob", 0),
	}
	client.RepliesByComment["c1"] = []forum.Comment{comment("c1a", "carol", 0)}
	client.AccountCreated["alice"] = time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	client.AccountCreated["bob"] = time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC)
	client.AccountCreated["carol"] = time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC)

	res, err := newSelector(client, 100, 50).Select(context.Background(), forum.Post{ID: "p1", Author: "dave", Title: "t"})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)

	cand := res.Candidates[0]
	require.Equal(t, "bob", cand.Username)
	require.Equal(t, 5, cand.AgeYears)
	require.Equal(t, "c2", cand.ParentID)
	require.Equal(t, 3, res.NodesExpanded)
	require.False(t, res.BudgetExhausted)
}

func TestSelect_BudgetNeverExceeded(t *testing.T) {
	freezeTime(t, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))

	// A "tree" where every reply loops back to the same two ids, looking
	// cyclic/unbounded to a naive traversal.
	client := forum.NewFakeClient()
	client.TopLevelByPost["p1"] = []forum.Comment{comment("c1", "u1", 5)}
	client.RepliesByComment["c1"] = []forum.Comment{comment("c2", "u2", 5)}
	client.RepliesByComment["c2"] = []forum.Comment{comment("c1", "u1", 5), comment("c2", "u2", 5)}
	client.AccountCreated["u1"] = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	client.AccountCreated["u2"] = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := newSelector(client, 10, 50).Select(context.Background(), forum.Post{ID: "p1"})
	require.NoError(t, err)
	require.LessOrEqual(t, res.NodesExpanded, 10)
}

func TestSelect_BudgetExhaustionStopsLaterBranches(t *testing.T) {
	freezeTime(t, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))

	client := forum.NewFakeClient()
	var tops []forum.Comment
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("c%d", i)
		tops = append(tops, comment(id, fmt.Sprintf("u%d", i), 10))
		for j := 0; j < 10; j++ {
			client.RepliesByComment[id] = append(client.RepliesByComment[id],
				comment(fmt.Sprintf("%s-r%d", id, j), "ru", 0))
		}
	}
	client.TopLevelByPost["p1"] = tops

	// Budget 8: 5 top-level nodes, then only the first branch gets the
	// remaining 3 expansions (first-branches-win).
	res, err := newSelector(client, 8, 50).Select(context.Background(), forum.Post{ID: "p1"})
	require.NoError(t, err)
	require.Equal(t, 8, res.NodesExpanded)
	require.True(t, res.BudgetExhausted)
	require.Len(t, res.Roots[0].Children, 3)
	for _, root := range res.Roots[1:] {
		require.Empty(t, root.Children)
	}
}

func TestSelect_BranchCapIsMinOfActualAndCap(t *testing.T) {
	freezeTime(t, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))

	client := forum.NewFakeClient()
	for i := 0; i < 60; i++ {
		client.TopLevelByPost["p1"] = append(client.TopLevelByPost["p1"],
			comment(fmt.Sprintf("c%d", i), "", 0))
	}

	res, err := newSelector(client, 1000, 50).Select(context.Background(), forum.Post{ID: "p1"})
	require.NoError(t, err)
	require.Len(t, res.Roots, 50)

	client2 := forum.NewFakeClient()
	client2.TopLevelByPost["p2"] = []forum.Comment{comment("x", "", 0), comment("y", "", 0)}
	res, err = newSelector(client2, 1000, 50).Select(context.Background(), forum.Post{ID: "p2"})
	require.NoError(t, err)
	require.Len(t, res.Roots, 2)
}

func TestSelect_BranchFetchFailureAbortsBranchOnly(t *testing.T) {
	freezeTime(t, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))

	client := forum.NewFakeClient()
	client.TopLevelByPost["p1"] = []forum.Comment{
		comment("bad", "u1", 3),
		comment("good", "u2", 1),
	}
	client.ReplyFailures["bad"] = forum.Transient(errors.New("api hiccup"))
	client.RepliesByComment["good"] = []forum.Comment{comment("good-r0", "u3", 0)}
	for _, u := range []string{"u1", "u2", "u3"} {
		client.AccountCreated[u] = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	res, err := newSelector(client, 100, 50).Select(context.Background(), forum.Post{ID: "p1"})
	require.NoError(t, err)
	require.Len(t, res.Roots, 2)
	require.Empty(t, res.Roots[0].Children)
	require.Len(t, res.Roots[1].Children, 1)
}

func TestSelect_AccountLookupMemoizedPerScan(t *testing.T) {
	freezeTime(t, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))

	client := forum.NewFakeClient()
	client.TopLevelByPost["p1"] = []forum.Comment{
		comment("c1", "alice", 0),
		comment("c2", "alice", 0),
		comment("c3", "alice", 0),
	}
	client.AccountCreated["alice"] = time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := newSelector(client, 100, 50).Select(context.Background(), forum.Post{ID: "p1"})
	require.NoError(t, err)
	require.Equal(t, 1, client.AccountLookups)
}

func TestSelect_CandidateReportedOncePerPost(t *testing.T) {
	freezeTime(t, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))

	client := forum.NewFakeClient()
	client.TopLevelByPost["p1"] = []forum.Comment{
		comment("c1", "bob", 0),
		comment("c2", "bob", 0),
	}
	client.AccountCreated["bob"] = time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC)

	res, err := newSelector(client, 100, 50).Select(context.Background(), forum.Post{ID: "p1"})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	require.Equal(t, "c1", res.Candidates[0].ParentID)
}

func TestContextWindow_ShapeAndTruncation(t *testing.T) {
	freezeTime(t, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))

	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}

	client := forum.NewFakeClient()
	client.TopLevelByPost["p1"] = []forum.Comment{
		{ID: "c1", Author: "ann", Body: string(long), ReplyCount: 2},
	}
	client.RepliesByComment["c1"] = []forum.Comment{
		comment("c1a", "bob", 0),
		comment("c1b", "cat", 0),
	}
	client.AccountCreated["ann"] = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	client.AccountCreated["bob"] = time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC)
	client.AccountCreated["cat"] = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := newSelector(client, 100, 50).Select(context.Background(), forum.Post{
		ID: "p1", Author: "poster", Body: "post body", Score: 12,
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)

	window := res.Candidates[0].Context
	// post, ancestor (truncated), candidate, sibling.
	require.Len(t, window, 4)
	require.Equal(t, "post", window[0].Kind)
	require.Equal(t, "poster", window[0].Author)
	require.Len(t, []rune(window[1].Text), 250)
	require.True(t, window[2].IsCandidate)
	require.Equal(t, "bob", window[2].Author)
	require.Equal(t, "cat", window[3].Author)
}

func TestSelect_DeletedAuthorsSkipped(t *testing.T) {
	freezeTime(t, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))

	client := forum.NewFakeClient()
	client.TopLevelByPost["p1"] = []forum.Comment{
		comment("c1", "[deleted]", 0),
		comment("c2", "", 0),
	}

	res, err := newSelector(client, 100, 50).Select(context.Background(), forum.Post{ID: "p1"})
	require.NoError(t, err)
	require.Empty(t, res.Candidates)
	require.Zero(t, client.AccountLookups)
}
