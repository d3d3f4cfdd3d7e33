package activities

import (
	"strings"
	"testing"

	"github.com/fediscus/fediscus/models"
	"github.com/stretchr/testify/require"
)

func TestActivities(t *testing.T) {
	local := &models.Account{URI: "https://relay.example/users/fediscus", Host: "relay.example"}
	remote := &models.Account{URI: "https://example.com/users/alice", Host: "example.com"}

	t.Run("NewID", func(t *testing.T) {
		require := require.New(t)
		id := NewID(local)
		require.True(strings.HasPrefix(id, "https://relay.example/activity/"))
		require.NotEqual(id, NewID(local))
	})

	t.Run("Follow", func(t *testing.T) {
		require := require.New(t)
		f := Follow("https://relay.example/activity/1", local, remote)
		require.Equal(FOLLOW, f["type"])
		require.Equal(local.URI, f["actor"])
		require.Equal(remote.URI, f["object"])
	})

	t.Run("Accept embeds the follow without its context", func(t *testing.T) {
		require := require.New(t)
		follow := Follow("https://example.com/follows/1", remote, local)
		a := Accept("https://relay.example/activity/2", local, follow)
		require.Equal(ACCEPT, a["type"])
		require.Equal(Context, a["@context"])
		obj := a["object"].(map[string]any)
		require.Equal("https://example.com/follows/1", obj["id"])
		require.NotContains(obj, "@context")
		require.Contains(follow, "@context", "the original is not modified")
	})

	t.Run("Undo", func(t *testing.T) {
		require := require.New(t)
		u := Undo("https://relay.example/activity/3", local, Follow("https://relay.example/activity/1", local, remote))
		require.Equal(UNDO, u["type"])
		require.Equal(FOLLOW, u["object"].(map[string]any)["type"])
	})
}
