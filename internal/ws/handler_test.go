package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skik4/cs2-casual-enjoyer/pkg/types"
)

func TestHandlerStreamsSnapshots(t *testing.T) {
	var version atomic.Int64
	snapshot := func() types.SnapshotMessage {
		n := version.Add(1)
		return types.SnapshotMessage{
			Type: "Snapshot",
			Joins: []types.JoinView{
				{FriendID: "42", Status: "waiting", Joined: n > 2},
			},
		}
	}

	srv := httptest.NewServer(Handler(snapshot, 10*time.Millisecond))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// First frame arrives without waiting a full tick.
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg types.SnapshotMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "Snapshot", msg.Type)
	require.Len(t, msg.Joins, 1)
	assert.Equal(t, "42", msg.Joins[0].FriendID)
	assert.False(t, msg.Joins[0].Joined)

	// Later frames track the changing registry.
	for {
		_, data, err = conn.Read(ctx)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Joins[0].Joined {
			return
		}
	}
}
