package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skik4/cs2-casual-enjoyer/internal/ws"
	"github.com/skik4/cs2-casual-enjoyer/pkg/types"
)

func SetupRoutes(svc JoinService, statuses StatusService, defaults Defaults, pushInterval time.Duration) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/joins/{friendID}", StartJoin(svc, defaults))
	r.Delete("/joins/{friendID}", CancelJoin(svc))
	r.Get("/joins", ListJoins(svc))
	r.Post("/reset", ResetJoins(svc))
	r.Get("/friends", Friends(statuses))
	r.Get("/healthz", Healthz)
	snapshot := func() types.SnapshotMessage { return SnapshotMessage(svc.Snapshot()) }
	r.Get("/ws", ws.Handler(snapshot, pushInterval))
	return r
}
