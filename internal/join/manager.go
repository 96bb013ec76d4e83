// Package join owns the per-friend join lifecycle: polling a friend's
// presence until their casual match has a free slot, firing the OS
// launch command, and verifying the result by comparing game-server
// ids. Each active join is one goroutine that observes cancellation
// at every sleep and fetch boundary.
package join

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skik4/cs2-casual-enjoyer/internal/launch"
	"github.com/skik4/cs2-casual-enjoyer/internal/presence"
	"github.com/skik4/cs2-casual-enjoyer/internal/steamapi"
)

const (
	// MinPollInterval bounds the request rate regardless of config.
	MinPollInterval = 100 * time.Millisecond

	DefaultPollInterval = 500 * time.Millisecond

	// missingTimeout is how long a friend may stay out of a joinable
	// casual match before the join is abandoned.
	missingTimeout = 60 * time.Second

	// joinedGrace keeps the Joined state visible before finalizing,
	// so the UI gets to show success.
	joinedGrace = 1500 * time.Millisecond
)

// Fetcher is the slice of the presence API the join loop needs.
// *steamapi.Client satisfies it.
type Fetcher interface {
	FetchConnectInfo(ctx context.Context, id string) (string, error)
	FetchServerID(ctx context.Context, id string) (string, error)
	FetchStatuses(ctx context.Context, ids []string) ([]presence.FriendStatus, error)
}

// FetcherFactory binds a per-join credential to a Fetcher. The auth
// value is opaque here; it came from the session provider and goes
// straight to the API client.
type FetcherFactory func(auth string) Fetcher

type Config struct {
	PollInterval time.Duration
	Protocol     string
	AppID        string
}

func (c Config) interval() time.Duration {
	if c.PollInterval <= 0 {
		return DefaultPollInterval
	}
	if c.PollInterval < MinPollInterval {
		return MinPollInterval
	}
	return c.PollInterval
}

// Manager starts, replaces, and cancels join loops. It is the entire
// public surface the UI layer talks to, next to Registry snapshots.
type Manager struct {
	ctx      context.Context
	fetchers FetcherFactory
	opener   launch.Opener
	registry *Registry
	cfg      Config
	clock    Clock
	logger   *zap.Logger
}

func NewManager(parent context.Context, fetchers FetcherFactory, opener launch.Opener, registry *Registry, cfg Config, clock Clock, logger *zap.Logger) *Manager {
	if clock == nil {
		clock = SystemClock
	}
	return &Manager{
		ctx:      parent,
		fetchers: fetchers,
		opener:   opener,
		registry: registry,
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
	}
}

// StartJoin begins (or restarts) the join loop for friendID. Replace
// semantics: an active loop for the same friend is cancelled and
// fully drained before the new loop runs, so two loops can never
// issue overlapping launch calls for one target.
func (m *Manager) StartJoin(friendID, selfID, auth string) {
	ctx, cancel := context.WithCancel(m.ctx)
	gen := uuid.NewString()
	done := make(chan struct{})

	prevDone := m.registry.begin(friendID, gen, State{Status: StatusWaiting}, cancel, done)

	t := task{
		friendID: friendID,
		selfID:   selfID,
		gen:      gen,
		done:     done,
		fetcher:  m.fetchers(auth),
		log:      m.logger.With(zap.String("friend_id", friendID)),
	}

	go func() {
		if prevDone != nil {
			<-prevDone
		}
		m.run(ctx, t)
	}()
}

// Cancel stops the loop for id. Takes effect at the loop's next
// boundary: within one poll interval plus one in-flight request.
func (m *Manager) Cancel(id string) bool { return m.registry.Cancel(id) }

// ResetAll stops every loop and wipes the registry.
func (m *Manager) ResetAll() { m.registry.ResetAll() }

// Snapshot returns the current per-friend states for rendering.
func (m *Manager) Snapshot() map[string]State { return m.registry.Snapshot() }

// Get returns the state for one friend.
func (m *Manager) Get(id string) (State, bool) { return m.registry.Get(id) }

type task struct {
	friendID string
	selfID   string
	gen      string
	done     chan struct{}
	fetcher  Fetcher
	log      *zap.Logger
}

func (m *Manager) run(ctx context.Context, t task) {
	defer close(t.done)

	// Whatever path ends the loop, the entry lands in Cancelled. The
	// Joined marker set below survives this, so a successful join
	// stays distinguishable after finalization.
	defer m.registry.finish(t.friendID, t.gen)

	var (
		missingSince time.Time
		lastName     string
		lastAvatar   string
		lastWarn     string
	)

	for {
		if ctx.Err() != nil {
			return
		}

		connect, err := t.fetcher.FetchConnectInfo(ctx, t.friendID)
		switch {
		case err == nil:
			missingSince = time.Time{}
			lastWarn = ""
			m.registry.set(t.friendID, t.gen, func(s *State) {
				s.Status = StatusConnecting
				s.MissingSince = time.Time{}
			})
			joined, cerr := m.connect(ctx, t, connect)
			if cerr != nil {
				t.log.Error("credential rejected, abandoning join", zap.Error(cerr))
				m.registry.set(t.friendID, t.gen, func(s *State) {
					s.LastError = cerr.Error()
				})
				return
			}
			if joined {
				// Joined: every rival loop gets cancelled, then the
				// state stays visible for a grace period.
				m.registry.CancelOthers(t.friendID)
				m.clock.Sleep(ctx, joinedGrace)
				return
			}
			if ctx.Err() != nil {
				return
			}
			// Connect token may have expired mid-attempt. Go back to
			// Waiting and fetch a fresh one instead of retrying it.
			m.registry.set(t.friendID, t.gen, func(s *State) {
				s.Status = StatusWaiting
			})

		case errors.Is(err, steamapi.ErrUnauthorized):
			t.log.Error("credential rejected, abandoning join", zap.Error(err))
			m.registry.set(t.friendID, t.gen, func(s *State) {
				s.LastError = err.Error()
			})
			return

		case errors.Is(err, steamapi.ErrEmptyResult):
			// No connect token. Fetch the full status to tell "still
			// in casual, between rounds" apart from "left the match".
			status, ferr := m.lookupStatus(ctx, t)
			if ferr != nil {
				if errors.Is(ferr, steamapi.ErrUnauthorized) {
					t.log.Error("credential rejected, abandoning join", zap.Error(ferr))
					m.registry.set(t.friendID, t.gen, func(s *State) {
						s.LastError = ferr.Error()
					})
					return
				}
				if ctx.Err() != nil {
					return
				}
				lastWarn = warnOnce(t.log, "status lookup failed", ferr, lastWarn)
				break
			}
			lastWarn = ""
			if status != nil {
				if status.DisplayName != "" {
					lastName = status.DisplayName
				}
				if status.AvatarURL != "" {
					lastAvatar = status.AvatarURL
				}
			}
			if status != nil && status.CanJoin {
				missingSince = time.Time{}
				m.registry.set(t.friendID, t.gen, func(s *State) {
					s.Status = StatusWaiting
					s.MissingSince = time.Time{}
				})
				break
			}
			if missingSince.IsZero() {
				missingSince = m.clock.Now()
				t.log.Info("friend left joinable match, waiting for return")
			}
			m.registry.set(t.friendID, t.gen, func(s *State) {
				s.Status = StatusMissing
				s.MissingSince = missingSince
				s.LastKnownName = lastName
				s.LastKnownAvatar = lastAvatar
			})
			if m.clock.Now().Sub(missingSince) > missingTimeout {
				t.log.Info("friend missing past timeout, giving up")
				return
			}

		default:
			// Transient transport failure: no data this tick, keep
			// polling.
			if ctx.Err() != nil {
				return
			}
			lastWarn = warnOnce(t.log, "presence poll failed", err, lastWarn)
		}

		if !m.clock.Sleep(ctx, m.cfg.interval()) {
			return
		}
	}
}

// connect fires the launch command and reports whether the follow-up
// server-id comparison confirmed the join. A credential rejection
// during verification is returned so the caller terminates instead of
// spending another poll tick on a key that is already dead.
func (m *Manager) connect(ctx context.Context, t task, connect string) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}

	uri := launch.URI(m.cfg.Protocol, m.cfg.AppID, t.friendID, connect)
	if err := m.opener.Open(ctx, uri); err != nil {
		t.log.Warn("launch command failed", zap.Error(err))
		return false, nil
	}

	// Give the game client one interval to pick the command up.
	if !m.clock.Sleep(ctx, m.cfg.interval()) {
		return false, nil
	}

	selfServer, err := t.fetcher.FetchServerID(ctx, t.selfID)
	if err != nil {
		if errors.Is(err, steamapi.ErrUnauthorized) {
			return false, err
		}
		return false, nil
	}
	friendServer, err := t.fetcher.FetchServerID(ctx, t.friendID)
	if err != nil {
		if errors.Is(err, steamapi.ErrUnauthorized) {
			return false, err
		}
		return false, nil
	}
	if selfServer == "" || selfServer != friendServer {
		return false, nil
	}

	t.log.Info("join confirmed", zap.String("server_id", selfServer))
	m.registry.set(t.friendID, t.gen, func(s *State) {
		s.Status = StatusJoined
		s.Joined = true
	})
	return true, nil
}

func (m *Manager) lookupStatus(ctx context.Context, t task) (*presence.FriendStatus, error) {
	statuses, err := t.fetcher.FetchStatuses(ctx, []string{t.friendID})
	if err != nil {
		return nil, err
	}
	for i := range statuses {
		if statuses[i].ID == t.friendID {
			return &statuses[i], nil
		}
	}
	return nil, nil
}

// warnOnce logs err only when its message differs from the previous
// one, so a flapping backend does not spam a warning per tick.
func warnOnce(log *zap.Logger, msg string, err error, prev string) string {
	if err.Error() != prev {
		log.Warn(msg, zap.Error(err))
	}
	return err.Error()
}
