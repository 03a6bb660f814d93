// Package sessionrpc is the identity-scoped transport to the remote session
// service. A client lazily builds its underlying transport ("actor") on first
// use and rebuilds it whenever the identity changes, so no call ever reuses
// authorization minted for a previous identity.
package sessionrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"session-gateway/config"
	"session-gateway/pkg/identity"
)

// ErrIdentityChanged is returned when the client identity was swapped while a
// call was in flight; the stale result is discarded instead of being handed
// to the caller.
var ErrIdentityChanged = errors.New("identity changed while call was in flight")

// ServerError carries a business error reported by the session service
// through its err-variant envelope.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// SessionRPC is the wire surface of the remote session service. Payloads are
// raw decoded JSON; normalization happens in the service layer.
type SessionRPC interface {
	CreateSession(ctx context.Context, input map[string]interface{}) (interface{}, error)
	GetSession(ctx context.Context, id string) (interface{}, error)
	GetAllSessions(ctx context.Context) (interface{}, error)
	GetMySessions(ctx context.Context) (interface{}, error)
	UpdateSession(ctx context.Context, id string, patch map[string]interface{}) (interface{}, error)
	DeleteSession(ctx context.Context, id string) (interface{}, error)
	JoinSession(ctx context.Context, id string) (interface{}, error)
	LeaveSession(ctx context.Context, id string) (interface{}, error)
	UpdateSessionStatus(ctx context.Context, id string, statusKey string) (interface{}, error)
	StartRecording(ctx context.Context, id string) (interface{}, error)
	StopRecording(ctx context.Context, id string) (interface{}, error)
	SessionsByStatus(ctx context.Context, statusKey string) (interface{}, error)
	SessionsByType(ctx context.Context, typeKey string) (interface{}, error)
	UpcomingSessions(ctx context.Context) (interface{}, error)
	LiveSessions(ctx context.Context) (interface{}, error)
	Authenticated() bool
}

type actor struct {
	httpClient *http.Client
	baseURL    string
	token      string
	version    uint64
}

// Client is safe for concurrent use. Identity transitions are guarded by a
// version counter captured when a call starts and rechecked before its result
// is used.
type Client struct {
	cfg config.SessionService

	mu      sync.Mutex
	id      *identity.Identity
	actor   *actor
	version uint64
	builds  int
}

func NewClient(cfg config.SessionService) *Client {
	return &Client{cfg: cfg}
}

// SetIdentity swaps the signing identity (nil means sign-out) and invalidates
// the cached transport; the next call rebuilds it under the new identity.
func (c *Client) SetIdentity(id *identity.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.actor = nil
	c.version++
}

func (c *Client) Identity() *identity.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Client) Authenticated() bool {
	return c.Identity() != nil
}

// Builds reports how many transports this client has constructed.
func (c *Client) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

func (c *Client) ensureActor(ctx context.Context) (*actor, error) {
	c.mu.Lock()
	if c.actor != nil {
		a := c.actor
		c.mu.Unlock()
		return a, nil
	}
	id := c.id
	version := c.version
	c.mu.Unlock()

	a := &actor{
		httpClient: &http.Client{Timeout: c.cfg.Timeout},
		baseURL:    strings.TrimRight(c.cfg.BaseURL, "/"),
		version:    version,
	}
	if id != nil {
		token, err := id.Token(c.cfg.SigningSecret, c.cfg.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to build session service transport: %w", err)
		}
		a.token = token
	}

	// Best-effort liveness check; a failed probe never blocks the transport.
	if err := a.ping(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("base_url", a.baseURL).Msg("session service liveness check failed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		return nil, ErrIdentityChanged
	}
	c.actor = a
	c.builds++
	return a, nil
}

func (a *actor) ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, a.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// invoke performs one RPC and unwraps the ok/err envelope.
func (c *Client) invoke(ctx context.Context, method string, args interface{}) (interface{}, error) {
	a, err := c.ensureActor(ctx)
	if err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s arguments: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/rpc/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("session service returned status %d for %s: %s", resp.StatusCode, method, string(respBody))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var envelope map[string]interface{}
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	// Discard results that completed under a replaced identity.
	c.mu.Lock()
	stale := a.version != c.version
	c.mu.Unlock()
	if stale {
		return nil, ErrIdentityChanged
	}

	if errPayload, present := envelope["err"]; present {
		return nil, &ServerError{Message: serverMessage(errPayload)}
	}
	okPayload, present := envelope["ok"]
	if !present {
		return nil, fmt.Errorf("%s response missing ok/err envelope", method)
	}
	return okPayload, nil
}

func serverMessage(payload interface{}) string {
	if s, ok := payload.(string); ok {
		return s
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(encoded)
}

func variant(key string) map[string]interface{} {
	return map[string]interface{}{key: nil}
}

func (c *Client) CreateSession(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	return c.invoke(ctx, "createSession", input)
}

func (c *Client) GetSession(ctx context.Context, id string) (interface{}, error) {
	return c.invoke(ctx, "getSession", map[string]interface{}{"id": id})
}

func (c *Client) GetAllSessions(ctx context.Context) (interface{}, error) {
	return c.invoke(ctx, "getAllSessions", nil)
}

func (c *Client) GetMySessions(ctx context.Context) (interface{}, error) {
	return c.invoke(ctx, "getMySessions", nil)
}

func (c *Client) UpdateSession(ctx context.Context, id string, patch map[string]interface{}) (interface{}, error) {
	return c.invoke(ctx, "updateSession", map[string]interface{}{"id": id, "update": patch})
}

func (c *Client) DeleteSession(ctx context.Context, id string) (interface{}, error) {
	return c.invoke(ctx, "deleteSession", map[string]interface{}{"id": id})
}

func (c *Client) JoinSession(ctx context.Context, id string) (interface{}, error) {
	return c.invoke(ctx, "joinSession", map[string]interface{}{"id": id})
}

func (c *Client) LeaveSession(ctx context.Context, id string) (interface{}, error) {
	return c.invoke(ctx, "leaveSession", map[string]interface{}{"id": id})
}

func (c *Client) UpdateSessionStatus(ctx context.Context, id string, statusKey string) (interface{}, error) {
	return c.invoke(ctx, "updateSessionStatus", map[string]interface{}{"id": id, "status": variant(statusKey)})
}

func (c *Client) StartRecording(ctx context.Context, id string) (interface{}, error) {
	return c.invoke(ctx, "startRecording", map[string]interface{}{"id": id})
}

func (c *Client) StopRecording(ctx context.Context, id string) (interface{}, error) {
	return c.invoke(ctx, "stopRecording", map[string]interface{}{"id": id})
}

func (c *Client) SessionsByStatus(ctx context.Context, statusKey string) (interface{}, error) {
	return c.invoke(ctx, "getSessionsByStatus", map[string]interface{}{"status": variant(statusKey)})
}

func (c *Client) SessionsByType(ctx context.Context, typeKey string) (interface{}, error) {
	return c.invoke(ctx, "getSessionsByType", map[string]interface{}{"sessionType": variant(typeKey)})
}

func (c *Client) UpcomingSessions(ctx context.Context) (interface{}, error) {
	return c.invoke(ctx, "getUpcomingSessions", nil)
}

func (c *Client) LiveSessions(ctx context.Context) (interface{}, error) {
	return c.invoke(ctx, "getLiveSessions", nil)
}
