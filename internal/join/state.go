package join

import "time"

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusConnecting Status = "connecting"
	StatusJoined     Status = "joined"
	StatusMissing    Status = "missing"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCancelled
}

// State is the externally visible join lifecycle for one friend.
// Mutated only by the owning loop; readers get copies.
type State struct {
	Status Status `json:"status"`

	// MissingSince is set (once) when the friend drops out of a
	// joinable casual match while a join is active. Zero when the
	// friend is present.
	MissingSince time.Time `json:"missing_since,omitzero"`

	// Cached display data so the UI can keep rendering a friend who
	// is currently missing from presence results.
	LastKnownName   string `json:"last_known_name,omitempty"`
	LastKnownAvatar string `json:"last_known_avatar,omitempty"`

	// Joined stays true after a successful join is finalized into
	// Cancelled, so "joined then closed" is distinguishable from
	// "cancelled by user".
	Joined bool `json:"joined"`

	// LastError carries a fatal loop error (credential rejection),
	// reported once.
	LastError string `json:"last_error,omitempty"`
}
