package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/skik4/cs2-casual-enjoyer/internal/join"
	"github.com/skik4/cs2-casual-enjoyer/internal/presence"
	"github.com/skik4/cs2-casual-enjoyer/internal/steamapi"
	"github.com/skik4/cs2-casual-enjoyer/pkg/types"
)

// JoinService is the whole surface the UI layer may drive: start,
// cancel, reset, snapshot.
type JoinService interface {
	StartJoin(friendID, selfID, auth string)
	Cancel(id string) bool
	ResetAll()
	Snapshot() map[string]join.State
}

// StatusService resolves presence for the friends list.
type StatusService interface {
	FetchStatuses(ctx context.Context, ids []string) ([]presence.FriendStatus, error)
}

// Defaults fill request fields the client omitted.
type Defaults struct {
	SelfID string
	Auth   string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func StartJoin(svc JoinService, defaults Defaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		friendID := chi.URLParam(r, "friendID")
		if friendID == "" {
			http.Error(w, "missing friend id", http.StatusBadRequest)
			return
		}

		var req types.StartJoinRequest
		if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
		}

		selfID := req.SelfID
		if selfID == "" {
			selfID = defaults.SelfID
		}
		auth := req.Auth
		if auth == "" {
			auth = defaults.Auth
		}
		if selfID == "" {
			http.Error(w, "self_id required (no default configured)", http.StatusBadRequest)
			return
		}
		if auth == "" {
			http.Error(w, "auth required (no default configured)", http.StatusBadRequest)
			return
		}

		svc.StartJoin(friendID, selfID, auth)
		w.WriteHeader(http.StatusAccepted)
	}
}

func CancelJoin(svc JoinService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		friendID := chi.URLParam(r, "friendID")
		if !svc.Cancel(friendID) {
			http.Error(w, "no join for friend", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListJoins(svc JoinService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SnapshotMessage(svc.Snapshot()))
	}
}

func ResetJoins(svc JoinService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.ResetAll()
		w.WriteHeader(http.StatusNoContent)
	}
}

func Friends(svc StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("ids")
		if raw == "" {
			http.Error(w, "missing ids", http.StatusBadRequest)
			return
		}
		ids := strings.Split(raw, ",")

		statuses, err := svc.FetchStatuses(r.Context(), ids)
		if err != nil {
			if errors.Is(err, steamapi.ErrUnauthorized) {
				http.Error(w, "credential rejected", http.StatusUnauthorized)
				return
			}
			http.Error(w, "presence backend unavailable", http.StatusBadGateway)
			return
		}

		views := make([]types.FriendView, 0, len(statuses))
		for _, fs := range statuses {
			views = append(views, types.FriendView{
				ID:            fs.ID,
				DisplayName:   fs.DisplayName,
				AvatarURL:     fs.AvatarURL,
				InGame:        fs.Presence.Status != "",
				CanJoin:       fs.CanJoin,
				JoinAvailable: fs.JoinAvailable,
				Map:           fs.Presence.Map,
				Score:         fs.Presence.Score,
			})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// SnapshotMessage converts a registry snapshot to the wire shape,
// sorted by friend id so payloads are stable.
func SnapshotMessage(snap map[string]join.State) types.SnapshotMessage {
	joins := make([]types.JoinView, 0, len(snap))
	for id, st := range snap {
		joins = append(joins, types.JoinView{
			FriendID:        id,
			Status:          string(st.Status),
			Joined:          st.Joined,
			MissingSince:    st.MissingSince,
			LastKnownName:   st.LastKnownName,
			LastKnownAvatar: st.LastKnownAvatar,
			LastError:       st.LastError,
		})
	}
	sort.Slice(joins, func(i, j int) bool { return joins[i].FriendID < joins[j].FriendID })
	return types.SnapshotMessage{Type: "Snapshot", Joins: joins}
}
