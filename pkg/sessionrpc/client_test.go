package sessionrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-gateway/config"
	"session-gateway/pkg/identity"
)

func testConfig(baseURL string) config.SessionService {
	return config.SessionService{
		BaseURL:       baseURL,
		SigningSecret: "test-secret",
		Timeout:       5 * time.Second,
		TokenTTL:      time.Minute,
	}
}

func newTestServer(t *testing.T, handler func(method string, w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		method := strings.TrimPrefix(r.URL.Path, "/rpc/")
		handler(method, w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInvokeUnwrapsOkEnvelope(t *testing.T) {
	srv := newTestServer(t, func(method string, w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "getSession", method)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": map[string]interface{}{"id": "s1", "title": "Algebra"},
		})
	})

	c := NewClient(testConfig(srv.URL))
	payload, err := c.GetSession(context.Background(), "s1")
	require.NoError(t, err)

	record, ok := payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "s1", record["id"])
}

func TestInvokeErrEnvelopeBecomesServerError(t *testing.T) {
	srv := newTestServer(t, func(method string, w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"err": "session not found"})
	})

	c := NewClient(testConfig(srv.URL))
	_, err := c.GetSession(context.Background(), "missing")
	require.Error(t, err)

	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, "session not found", serverErr.Message)
}

func TestInvokeStructuredErrIsStringified(t *testing.T) {
	srv := newTestServer(t, func(method string, w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"err": map[string]interface{}{"code": "FULL", "max": 10},
		})
	})

	c := NewClient(testConfig(srv.URL))
	_, err := c.JoinSession(context.Background(), "s1")

	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Contains(t, serverErr.Message, "FULL")
}

func TestInvokeRejectsMissingEnvelope(t *testing.T) {
	srv := newTestServer(t, func(method string, w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"result": true})
	})

	c := NewClient(testConfig(srv.URL))
	_, err := c.GetAllSessions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ok/err envelope")
}

func TestNumbersDecodeLossless(t *testing.T) {
	srv := newTestServer(t, func(method string, w http.ResponseWriter, r *http.Request) {
		// Written as a raw body so the nanosecond value is not rounded
		// through a float on the way out.
		w.Write([]byte(`{"ok": {"scheduledTime": 1700000000000000001}}`))
	})

	c := NewClient(testConfig(srv.URL))
	payload, err := c.GetSession(context.Background(), "s1")
	require.NoError(t, err)

	record := payload.(map[string]interface{})
	num, ok := record["scheduledTime"].(json.Number)
	require.True(t, ok)
	assert.Equal(t, "1700000000000000001", num.String())
}

func TestSetIdentityInvalidatesTransport(t *testing.T) {
	var seenTokens []string
	srv := newTestServer(t, func(method string, w http.ResponseWriter, r *http.Request) {
		seenTokens = append(seenTokens, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": []interface{}{}})
	})

	c := NewClient(testConfig(srv.URL))

	_, err := c.GetAllSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Builds())
	assert.Empty(t, seenTokens[0])

	// Repeated calls reuse the cached transport.
	_, err = c.GetAllSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Builds())

	// A new identity forces the next call onto a fresh transport.
	c.SetIdentity(&identity.Identity{Principal: "alice", DisplayName: "Alice"})
	_, err = c.GetAllSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Builds())
	require.True(t, strings.HasPrefix(seenTokens[2], "Bearer "))

	id, err := identity.Parse(strings.TrimPrefix(seenTokens[2], "Bearer "), "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Principal)

	// Sign-out invalidates again.
	c.SetIdentity(nil)
	_, err = c.GetAllSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Builds())
	assert.Empty(t, seenTokens[3])
}

func TestIdentityChangeDiscardsInFlightResult(t *testing.T) {
	srv := newTestServer(t, func(method string, w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": []interface{}{}})
	})

	c := NewClient(testConfig(srv.URL))
	done := make(chan error, 1)
	go func() {
		_, err := c.GetAllSessions(context.Background())
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	c.SetIdentity(&identity.Identity{Principal: "bob"})

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIdentityChanged)
}

func TestLivenessFailureDoesNotBlockCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	payload, err := c.DeleteSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, true, payload)
}

func TestPoolSeparatesIdentities(t *testing.T) {
	pool := NewPool(testConfig("http://localhost:1"))

	anon := pool.For(nil)
	assert.Same(t, anon, pool.For(nil))
	assert.False(t, anon.Authenticated())

	alice := pool.For(&identity.Identity{Principal: "alice"})
	bob := pool.For(&identity.Identity{Principal: "bob"})
	assert.NotSame(t, alice, bob)
	assert.Same(t, alice, pool.For(&identity.Identity{Principal: "alice"}))
	assert.True(t, alice.Authenticated())

	pool.Evict("alice")
	assert.False(t, alice.Authenticated())
	assert.NotSame(t, alice, pool.For(&identity.Identity{Principal: "alice"}))
}
