package forum

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeSnapshot(t *testing.T, snap Snapshot) string {
	t.Helper()
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestReplayClient_ServesSnapshot(t *testing.T) {
	created := time.Date(2020, 3, 14, 12, 0, 0, 0, time.UTC)
	path := writeSnapshot(t, Snapshot{
		Posts: map[string][]Post{
			"cats": {{ID: "p1", Title: "whiskers", Author: "alice"}, {ID: "p2"}},
		},
		TopLevel: map[string][]Comment{
			"p1": {{ID: "c1", Author: "bob", Body: "nice"}},
		},
		Accounts: map[string]time.Time{"bob": created},
	})

	client, err := NewReplayClient(path)
	require.NoError(t, err)
	ctx := context.Background()

	posts, err := client.FetchNewPosts(ctx, "cats", 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "p1", posts[0].ID)

	comments, err := client.FetchTopLevelComments(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	at, err := client.AccountCreatedAt(ctx, "bob")
	require.NoError(t, err)
	require.True(t, at.Equal(created))

	_, err = client.AccountCreatedAt(ctx, "nobody")
	require.Error(t, err)
}

func TestReplayClient_RecordsRepliesLocally(t *testing.T) {
	path := writeSnapshot(t, Snapshot{})
	client, err := NewReplayClient(path)
	require.NoError(t, err)

	require.NoError(t, client.PostReply(context.Background(), "c1", "Happy Cake Day!"))
	posted := client.Posted()
	require.Len(t, posted, 1)
	require.Equal(t, "c1", posted[0].ParentID)
}

func TestNewReplayClient_MissingFile(t *testing.T) {
	_, err := NewReplayClient(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
