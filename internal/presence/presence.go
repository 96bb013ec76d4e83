package presence

import (
	"regexp"
	"strings"
)

// Info holds the typed fields extracted from a rich-presence blob.
// Every field is optional: a key missing from the blob leaves the
// field empty, and consumers must treat "" as absent.
type Info struct {
	Status    string `json:"status"`
	GameMode  string `json:"game_mode"`
	GameState string `json:"game_state"`
	Map       string `json:"map"`
	Score     string `json:"score"`
	Connect   string `json:"connect"`
	ServerID  string `json:"server_id"`
}

type FriendStatus struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Presence      Info   `json:"presence"`
	CanJoin       bool   `json:"can_join"`
	JoinAvailable bool   `json:"join_available"`
	AvatarURL     string `json:"avatar_url"`
}

const (
	ModeCasual = "casual"

	stateLobby = "lobby"
)

// Blob format is a flat sequence of `"key" "value"` pairs in no
// particular order. Each field gets its own lookup so a malformed
// pair only loses that one key.
var keyPatterns = map[string]*regexp.Regexp{
	"status":      compileKey("status"),
	"game:mode":   compileKey("game:mode"),
	"game:state":  compileKey("game:state"),
	"game:map":    compileKey("game:map"),
	"game:score":  compileKey("game:score"),
	"connect":     compileKey("connect"),
	"game:server": compileKey("game:server"),
}

func compileKey(key string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s+"([^"]*)"`)
}

func lookup(blob, key string) string {
	m := keyPatterns[key].FindStringSubmatch(blob)
	if m == nil {
		return ""
	}
	return m[1]
}

// Decode extracts the known presence keys from blob. Pure: no side
// effects, safe to call concurrently, never fails — an unrecognized
// or truncated blob simply decodes to absent fields.
func Decode(blob string) Info {
	return Info{
		Status:    lookup(blob, "status"),
		GameMode:  lookup(blob, "game:mode"),
		GameState: lookup(blob, "game:state"),
		Map:       lookup(blob, "game:map"),
		Score:     lookup(blob, "game:score"),
		Connect:   lookup(blob, "connect"),
		ServerID:  lookup(blob, "game:server"),
	}
}

// CanJoin reports whether the presence describes a casual match that
// is past the lobby stage.
func (i Info) CanJoin() bool {
	if i.GameMode != ModeCasual {
		return false
	}
	return i.GameState != "" && i.GameState != stateLobby
}

// JoinAvailable reports whether a direct connect is possible right
// now: joinable and carrying a connect token with the expected prefix.
func (i Info) JoinAvailable(connectPrefix string) bool {
	return i.CanJoin() && strings.HasPrefix(i.Connect, connectPrefix)
}

// BuildFriendStatus derives the UI-facing view for one friend.
func BuildFriendStatus(id, displayName, avatarURL string, info Info, connectPrefix string) FriendStatus {
	return FriendStatus{
		ID:            id,
		DisplayName:   displayName,
		Presence:      info,
		CanJoin:       info.CanJoin(),
		JoinAvailable: info.JoinAvailable(connectPrefix),
		AvatarURL:     avatarURL,
	}
}
