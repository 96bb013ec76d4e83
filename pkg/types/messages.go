package types

import "time"

// Client -> Server
//
// StartJoin (POST /joins/{friend_id}):
//
//	self_id: string   // optional, defaults to the configured account
//	auth: string      // optional, defaults to the configured API key
type StartJoinRequest struct {
	SelfID string `json:"self_id,omitempty"`
	Auth   string `json:"auth,omitempty"`
}

// Server -> Client

// JoinView is one friend's join lifecycle as rendered by the UI.
type JoinView struct {
	FriendID        string    `json:"friend_id"`
	Status          string    `json:"status"` // waiting | connecting | joined | missing | cancelled
	Joined          bool      `json:"joined"` // true once a join was confirmed, survives finalization
	MissingSince    time.Time `json:"missing_since,omitzero"`
	LastKnownName   string    `json:"last_known_name,omitempty"`
	LastKnownAvatar string    `json:"last_known_avatar,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
}

// SnapshotMessage carries the full registry state, both as the
// GET /joins response body and as each WebSocket push frame.
type SnapshotMessage struct {
	Type  string     `json:"type"` // "Snapshot"
	Joins []JoinView `json:"joins"`
}

// FriendView mirrors one presence lookup for the friends list.
type FriendView struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	AvatarURL     string `json:"avatar_url"`
	InGame        bool   `json:"in_game"`
	CanJoin       bool   `json:"can_join"`
	JoinAvailable bool   `json:"join_available"`
	Map           string `json:"map,omitempty"`
	Score         string `json:"score,omitempty"`
}

type ErrorMessage struct {
	Type  string `json:"type"` // "Error"
	Error string `json:"error"`
}
