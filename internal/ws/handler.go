package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/skik4/cs2-casual-enjoyer/pkg/types"
)

// SnapshotFunc produces the current registry view for one push frame.
type SnapshotFunc func() types.SnapshotMessage

// Handler streams registry snapshots to a UI client. The UI renders
// dots and buttons from these frames; commands go over the plain HTTP
// routes, so the read side only drains control frames.
func Handler(snapshot SnapshotFunc, interval time.Duration) http.HandlerFunc {
	if interval <= 0 {
		interval = time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		// Writer goroutine: one snapshot immediately, then one per tick.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if !push(writeCtx, conn, snapshot()) {
					return
				}
				select {
				case <-writeCtx.Done():
					return
				case <-ticker.C:
				}
			}
		}()

		// Reader loop: drain until the client goes away.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}
		}
	}
}

func push(ctx context.Context, conn *websocket.Conn, msg types.SnapshotMessage) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, payload) == nil
}
