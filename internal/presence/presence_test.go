package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullBlob = `"status" "in game" "game:mode" "casual" "game:state" "2" "game:map" "de_dust2" "game:score" "3 : 5" "connect" "+gcconnect 123" "game:server" "900123"`

func TestDecodeFullBlob(t *testing.T) {
	info := Decode(fullBlob)

	require.Equal(t, "in game", info.Status)
	require.Equal(t, "casual", info.GameMode)
	require.Equal(t, "2", info.GameState)
	require.Equal(t, "de_dust2", info.Map)
	require.Equal(t, "3 : 5", info.Score)
	require.Equal(t, "+gcconnect 123", info.Connect)
	require.Equal(t, "900123", info.ServerID)
}

func TestDecodeMissingKeysYieldAbsentFields(t *testing.T) {
	cases := []struct {
		name string
		blob string
		want Info
	}{
		{
			name: "empty blob",
			blob: "",
			want: Info{},
		},
		{
			name: "status only",
			blob: `"status" "on menu"`,
			want: Info{Status: "on menu"},
		},
		{
			name: "order independent",
			blob: `"connect" "+gcconnect" "status" "in game"`,
			want: Info{Status: "in game", Connect: "+gcconnect"},
		},
		{
			name: "garbage never panics",
			blob: `"""""dangling "quote`,
			want: Info{},
		},
		{
			name: "unknown keys ignored",
			blob: `"game:type" "ranked" "game:mode" "casual"`,
			want: Info{GameMode: "casual"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decode(tc.blob))
		})
	}
}

func TestCanJoin(t *testing.T) {
	cases := []struct {
		name string
		info Info
		want bool
	}{
		{"casual in round", Info{GameMode: "casual", GameState: "2"}, true},
		{"casual between rounds", Info{GameMode: "casual", GameState: "gameover"}, true},
		{"casual in lobby", Info{GameMode: "casual", GameState: "lobby"}, false},
		{"casual without state", Info{GameMode: "casual"}, false},
		{"competitive", Info{GameMode: "competitive", GameState: "2"}, false},
		{"no presence at all", Info{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.info.CanJoin())
		})
	}
}

func TestJoinAvailableRequiresConnectPrefix(t *testing.T) {
	blob := `"status" "in game" "game:mode" "casual" "game:state" "2" "connect" "+gcconnect"`
	info := Decode(blob)
	require.True(t, info.CanJoin())
	require.True(t, info.JoinAvailable("+gcconnect"))

	lobby := Decode(`"game:mode" "casual" "game:state" "lobby" "connect" "+gcconnect"`)
	require.False(t, lobby.CanJoin())
	require.False(t, lobby.JoinAvailable("+gcconnect"))

	noConnect := Decode(`"game:mode" "casual" "game:state" "2"`)
	require.True(t, noConnect.CanJoin())
	require.False(t, noConnect.JoinAvailable("+gcconnect"))

	wrongPrefix := Decode(`"game:mode" "casual" "game:state" "2" "connect" "steam://joinlobby/1"`)
	require.False(t, wrongPrefix.JoinAvailable("+gcconnect"))
}

func TestBuildFriendStatus(t *testing.T) {
	info := Decode(fullBlob)
	fs := BuildFriendStatus("7656119", "alice", "https://avatars/a.jpg", info, "+gcconnect")

	assert.Equal(t, "7656119", fs.ID)
	assert.Equal(t, "alice", fs.DisplayName)
	assert.Equal(t, "https://avatars/a.jpg", fs.AvatarURL)
	assert.True(t, fs.CanJoin)
	assert.True(t, fs.JoinAvailable)
	assert.Equal(t, info, fs.Presence)
}
