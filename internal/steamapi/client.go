package steamapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skik4/cs2-casual-enjoyer/internal/presence"
)

// The summaries endpoint caps one request at this many ids; larger
// inputs are split and fetched chunk by chunk.
const maxBatchSize = 100

const summariesPath = "/ISteamUser/GetPlayerSummaries/v0002/"

var (
	// ErrEmptyResult means the call succeeded but carried no usable
	// data for the requested id. Callers treat this as "temporarily
	// unknown", not as a failure.
	ErrEmptyResult = errors.New("steamapi: empty result")

	// ErrUnauthorized means the credential itself was rejected.
	// Fatal to the calling loop, unlike transport errors.
	ErrUnauthorized = errors.New("steamapi: credential rejected")
)

// APIError is a transport-level failure carrying the HTTP status the
// backend answered with. Retryable.
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("steamapi: request failed with status %d", e.StatusCode)
}

type playerSummary struct {
	SteamID      string `json:"steamid"`
	PersonaName  string `json:"personaname"`
	AvatarFull   string `json:"avatarfull"`
	RichPresence string `json:"rich_presence"`
	GameServerID string `json:"gameserversteamid"`
}

type summariesEnvelope struct {
	Response struct {
		Players []playerSummary `json:"players"`
	} `json:"response"`
}

// avatarCache remembers the last non-empty avatar per id so a later
// response with the field missing still renders something. Held by
// pointer: every WithKey copy of a Client shares the one cache and
// the one lock.
type avatarCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newAvatarCache() *avatarCache {
	return &avatarCache{entries: make(map[string]string)}
}

func (a *avatarCache) remember(id, avatar string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if avatar != "" {
		a.entries[id] = avatar
		return avatar
	}
	return a.entries[id]
}

func (a *avatarCache) get(id string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entries[id]
}

// Client queries the remote presence API. Safe for concurrent use.
type Client struct {
	baseURL       string
	apiKey        string
	connectPrefix string
	http          *http.Client
	logger        *zap.Logger
	avatars       *avatarCache
}

func NewClient(baseURL, apiKey, connectPrefix string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		connectPrefix: connectPrefix,
		http:          &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
		avatars:       newAvatarCache(),
	}
}

// WithKey returns a copy using a different credential. The avatar
// cache stays shared with the parent.
func (c *Client) WithKey(apiKey string) *Client {
	cp := *c
	cp.apiKey = apiKey
	return &cp
}

func (c *Client) fetchBatch(ctx context.Context, ids []string) ([]playerSummary, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("steamids", strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+summariesPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{StatusCode: 0}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var env summariesEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}
	return env.Response.Players, nil
}

// FetchStatuses resolves presence for up to len(ids) friends,
// batching the backend calls. A failed batch is logged and skipped so
// one bad chunk never loses the rest; an auth rejection aborts the
// whole call since every remaining chunk would fail the same way.
func (c *Client) FetchStatuses(ctx context.Context, ids []string) ([]presence.FriendStatus, error) {
	out := make([]presence.FriendStatus, 0, len(ids))

	for start := 0; start < len(ids); start += maxBatchSize {
		end := min(start+maxBatchSize, len(ids))
		players, err := c.fetchBatch(ctx, ids[start:end])
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return nil, err
			}
			c.logger.Warn("summaries batch failed, skipping",
				zap.Int("offset", start),
				zap.Int("size", end-start),
				zap.Error(err))
			continue
		}
		for _, p := range players {
			avatar := c.cacheAvatar(p.SteamID, p.AvatarFull)
			info := presence.Decode(p.RichPresence)
			if info.ServerID == "" {
				info.ServerID = p.GameServerID
			}
			out = append(out, presence.BuildFriendStatus(p.SteamID, p.PersonaName, avatar, info, c.connectPrefix))
		}
	}
	return out, nil
}

// FetchConnectInfo is the hot-path single-id lookup. Returns the
// connect token, or ErrEmptyResult when the friend is not in a
// joinable casual match right now.
func (c *Client) FetchConnectInfo(ctx context.Context, id string) (string, error) {
	p, err := c.fetchOne(ctx, id)
	if err != nil {
		return "", err
	}
	info := presence.Decode(p.RichPresence)
	if !info.JoinAvailable(c.connectPrefix) {
		return "", ErrEmptyResult
	}
	return info.Connect, nil
}

// FetchServerID returns the game-server identifier the given user is
// currently connected to, or ErrEmptyResult when they are not on a
// server.
func (c *Client) FetchServerID(ctx context.Context, id string) (string, error) {
	p, err := c.fetchOne(ctx, id)
	if err != nil {
		return "", err
	}
	if p.GameServerID != "" {
		return p.GameServerID, nil
	}
	if sid := presence.Decode(p.RichPresence).ServerID; sid != "" {
		return sid, nil
	}
	return "", ErrEmptyResult
}

func (c *Client) fetchOne(ctx context.Context, id string) (playerSummary, error) {
	players, err := c.fetchBatch(ctx, []string{id})
	if err != nil {
		return playerSummary{}, err
	}
	for _, p := range players {
		if p.SteamID == id {
			c.cacheAvatar(p.SteamID, p.AvatarFull)
			return p, nil
		}
	}
	return playerSummary{}, ErrEmptyResult
}

func (c *Client) cacheAvatar(id, avatar string) string {
	return c.avatars.remember(id, avatar)
}

// CachedAvatar returns the last avatar URL seen for id, if any.
func (c *Client) CachedAvatar(id string) string {
	return c.avatars.get(id)
}
