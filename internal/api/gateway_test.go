package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"pasarku-client/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRoundTripper allows us to script the HTTP responses
type MockRoundTripper func(req *http.Request) *http.Response

func (f MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

type MockRoundTripperWithError func(req *http.Request) (*http.Response, error)

func (f MockRoundTripperWithError) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

type fakeSession struct {
	token        string
	proof        string
	refreshed    string
	refreshErr   error
	reloginErr   error
	refreshCalls int
	reloginCalls int
	invalidated  bool
}

func (f *fakeSession) AccessToken() (string, bool) { return f.token, f.token != "" }
func (f *fakeSession) IdentityProof() string       { return f.proof }

func (f *fakeSession) Refresh(ctx context.Context) error {
	f.refreshCalls++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.token = f.refreshed
	return nil
}

func (f *fakeSession) Relogin(ctx context.Context) error {
	f.reloginCalls++
	if f.reloginErr != nil {
		return f.reloginErr
	}
	f.token = f.refreshed
	return nil
}

func (f *fakeSession) Invalidate(reason error) { f.invalidated = true }

func newTestGateway(t *testing.T, mode config.AuthMode, session Session, rt http.RoundTripper) *Gateway {
	t.Helper()

	g := NewGateway(&config.Config{
		APIBaseURL:     "https://api.pasarku.test",
		AuthMode:       mode,
		InitDataHeader: "X-Init-Data",
		RequestTimeout: time.Second,
	}, session)
	g.httpClient.Transport = rt
	return g
}

func TestGateway_Call(t *testing.T) {
	t.Run("Success decodes body", func(t *testing.T) {
		session := &fakeSession{token: "tok-1"}
		attempts := 0

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripper(func(req *http.Request) *http.Response {
			attempts++
			assert.Equal(t, "https://api.pasarku.test/products", req.URL.String())
			assert.Empty(t, req.Header.Get("Authorization"))
			assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
			return jsonResponse(200, `[{"id":1}]`)
		}))

		var out []struct {
			ID int64 `json:"id"`
		}
		err := g.CallJSON(context.Background(), http.MethodGet, "/products", nil, &out, false)
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
		require.Len(t, out, 1)
		assert.Equal(t, int64(1), out[0].ID)
	})

	t.Run("Bearer credential attached when auth required", func(t *testing.T) {
		session := &fakeSession{token: "tok-1"}

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripper(func(req *http.Request) *http.Response {
			assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
			return jsonResponse(200, `{}`)
		}))

		_, err := g.Call(context.Background(), http.MethodGet, "/locations", nil, true)
		assert.NoError(t, err)
	})

	t.Run("InitData mode forwards the proof instead of a token", func(t *testing.T) {
		session := &fakeSession{token: "tok-1", proof: "signed-proof"}

		g := newTestGateway(t, config.ModeInitData, session, MockRoundTripper(func(req *http.Request) *http.Response {
			assert.Equal(t, "signed-proof", req.Header.Get("X-Init-Data"))
			assert.Empty(t, req.Header.Get("Authorization"))
			return jsonResponse(200, `{}`)
		}))

		_, err := g.Call(context.Background(), http.MethodGet, "/locations", nil, true)
		assert.NoError(t, err)
	})

	t.Run("401 then refresh then success is transparent", func(t *testing.T) {
		session := &fakeSession{token: "stale", refreshed: "fresh"}
		attempts := 0

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripper(func(req *http.Request) *http.Response {
			attempts++
			if req.Header.Get("Authorization") == "Bearer fresh" {
				return jsonResponse(200, `{"ok":true}`)
			}
			return jsonResponse(401, `{"error":"token expired"}`)
		}))

		body, err := g.Call(context.Background(), http.MethodPost, "/orders", map[string]int{"sellerId": 7}, true)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
		assert.Equal(t, 2, attempts)
		assert.Equal(t, 1, session.refreshCalls)
		assert.Equal(t, 0, session.reloginCalls)
	})

	t.Run("401 after refresh falls back to re-login", func(t *testing.T) {
		session := &fakeSession{token: "stale", refreshed: "stale"}
		attempts := 0

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripper(func(req *http.Request) *http.Response {
			attempts++
			if attempts == 3 {
				return jsonResponse(200, `{"ok":true}`)
			}
			return jsonResponse(401, ``)
		}))

		_, err := g.Call(context.Background(), http.MethodGet, "/locations", nil, true)
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, 1, session.refreshCalls)
		assert.Equal(t, 1, session.reloginCalls)
		assert.False(t, session.invalidated)
	})

	t.Run("Auth error surfaces and clears session when re-login fails", func(t *testing.T) {
		session := &fakeSession{token: "stale", refreshed: "stale", reloginErr: AuthError("proof rejected")}

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(401, ``)
		}))

		_, err := g.Call(context.Background(), http.MethodGet, "/locations", nil, true)
		apiErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindAuth, apiErr.Kind)
		assert.True(t, session.invalidated)
	})

	t.Run("Auth error surfaces when refresh fails", func(t *testing.T) {
		session := &fakeSession{token: "stale", refreshErr: AuthError("refresh rejected")}
		attempts := 0

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripper(func(req *http.Request) *http.Response {
			attempts++
			return jsonResponse(401, ``)
		}))

		_, err := g.Call(context.Background(), http.MethodGet, "/locations", nil, true)
		apiErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindAuth, apiErr.Kind)
		assert.Equal(t, 1, attempts)
	})

	t.Run("401 on unauthenticated call is not retried", func(t *testing.T) {
		session := &fakeSession{}
		attempts := 0

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripper(func(req *http.Request) *http.Response {
			attempts++
			return jsonResponse(401, ``)
		}))

		_, err := g.Call(context.Background(), http.MethodGet, "/products", nil, false)
		apiErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindAuth, apiErr.Kind)
		assert.Equal(t, 1, attempts)
		assert.Equal(t, 0, session.refreshCalls)
	})

	t.Run("429 is surfaced, never auto-retried", func(t *testing.T) {
		session := &fakeSession{token: "tok"}
		attempts := 0

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripper(func(req *http.Request) *http.Response {
			attempts++
			resp := jsonResponse(429, ``)
			resp.Header.Set("Retry-After", "45")
			return resp
		}))

		_, err := g.Call(context.Background(), http.MethodPost, "/orders", nil, true)
		apiErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindRateLimited, apiErr.Kind)
		assert.Equal(t, 45, apiErr.RetryAfterSeconds)
		assert.Equal(t, 1, attempts)
	})

	t.Run("No-content success resolves to empty body", func(t *testing.T) {
		session := &fakeSession{token: "tok"}

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(204, ``)
		}))

		body, err := g.Call(context.Background(), http.MethodDelete, "/locations/3", nil, true)
		assert.NoError(t, err)
		assert.Empty(t, body)

		// CallJSON must not attempt to parse it either.
		err = g.CallJSON(context.Background(), http.MethodDelete, "/locations/3", nil, nil, true)
		assert.NoError(t, err)
	})

	t.Run("Transport failure is Network", func(t *testing.T) {
		session := &fakeSession{}

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripperWithError(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}))

		_, err := g.Call(context.Background(), http.MethodGet, "/products", nil, false)
		apiErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindNetwork, apiErr.Kind)
	})

	t.Run("Deadline expiry cancels the call and yields Timeout", func(t *testing.T) {
		session := &fakeSession{}

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripperWithError(func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		}))
		g.timeout = 50 * time.Millisecond

		start := time.Now()
		_, err := g.Call(context.Background(), http.MethodGet, "/products", nil, false)
		apiErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindTimeout, apiErr.Kind)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("Malformed success body is a Server error", func(t *testing.T) {
		session := &fakeSession{}

		g := newTestGateway(t, config.ModeBearer, session, MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(200, `{not json`)
		}))

		var out map[string]any
		err := g.CallJSON(context.Background(), http.MethodGet, "/products", nil, &out, false)
		apiErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindServer, apiErr.Kind)
	})
}
