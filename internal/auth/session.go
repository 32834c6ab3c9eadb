package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"pasarku-client/internal/api"
	"pasarku-client/internal/config"
	"pasarku-client/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type loginRequest struct {
	IdentityProof string `json:"identityProof"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session drives login, refresh and re-authentication against the auth
// endpoints. One Session exists per running client; it is constructed at
// startup and passed to every consumer, never reached as a package global.
type Session struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     *TokenStore

	// Coalesces concurrent refresh/relogin attempts into one exchange.
	group singleflight.Group

	mu     sync.Mutex
	state  State
	user   *User
	proof  string
	reason error
}

func NewSession(cfg *config.Config, tokens *TokenStore) *Session {
	s := &Session{
		baseURL:    cfg.APIBaseURL,
		httpClient: &http.Client{},
		timeout:    cfg.RequestTimeout,
		tokens:     tokens,
		state:      StateUnauthenticated,
	}

	// A credential that survived a restart keeps the session usable; the
	// profile stays unknown until the next login.
	if _, ok := tokens.Get(); ok {
		s.state = StateAuthenticated
	}

	return s
}

// Login exchanges the opaque identity proof for a fresh credential pair and
// retains the proof for later re-authentication.
func (s *Session) Login(ctx context.Context, proof string) (*User, error) {
	if proof == "" {
		err := api.AuthError(ErrNoProof.Error())
		s.fail(err)
		return nil, err
	}

	s.mu.Lock()
	s.state = StateAuthenticating
	s.proof = proof
	s.mu.Unlock()

	log := logger.FromCtx(ctx)

	raw, err := s.postJSON(ctx, "/auth/login", loginRequest{IdentityProof: proof})
	if err != nil {
		log.Warn("login failed", zap.Error(err))
		s.fail(err)
		return nil, err
	}

	var res loginResponse
	if err := json.Unmarshal(raw, &res); err != nil || res.AccessToken == "" {
		e := &api.Error{Kind: api.KindServer, Message: "malformed login response"}
		s.fail(e)
		return nil, e
	}

	s.tokens.Set(Credential{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})

	u := res.User
	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = &u
	s.reason = nil
	s.mu.Unlock()

	log.Info("login succeeded", zap.Int64("user_id", u.ID))
	return &u, nil
}

// Refresh exchanges the stored refresh token for a new access token. At most
// one exchange is in flight at a time; concurrent callers attach to it.
func (s *Session) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return nil, s.doRefresh()
	})
	return err
}

// doRefresh runs on its own deadline: a caller that gives up must not cancel
// an exchange other callers are still awaiting.
func (s *Session) doRefresh() error {
	cred, ok := s.tokens.Get()
	if !ok || cred.RefreshToken == "" {
		return s.doRelogin()
	}

	s.mu.Lock()
	s.state = StateRefreshing
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	raw, err := s.postJSON(ctx, "/auth/refresh", refreshRequest{RefreshToken: cred.RefreshToken})
	if err != nil {
		logger.L().Warn("token refresh failed", zap.Error(err))
		s.tokens.Clear()
		// Fall back to a full login with the original identity proof.
		if reloginErr := s.doRelogin(); reloginErr != nil {
			return err
		}
		return nil
	}

	var res refreshResponse
	if err := json.Unmarshal(raw, &res); err != nil || res.AccessToken == "" {
		e := &api.Error{Kind: api.KindServer, Message: "malformed refresh response"}
		s.tokens.Clear()
		s.fail(e)
		return e
	}

	cred.AccessToken = res.AccessToken
	if res.RefreshToken != "" {
		cred.RefreshToken = res.RefreshToken
	}
	s.tokens.Set(cred)

	s.mu.Lock()
	s.state = StateAuthenticated
	s.mu.Unlock()

	return nil
}

// Relogin repeats the full login exchange with the retained identity proof.
func (s *Session) Relogin(ctx context.Context) error {
	_, err, _ := s.group.Do("relogin", func() (interface{}, error) {
		return nil, s.doRelogin()
	})
	return err
}

func (s *Session) doRelogin() error {
	s.mu.Lock()
	proof := s.proof
	s.mu.Unlock()

	if proof == "" {
		err := api.AuthError(ErrNoProof.Error())
		s.fail(err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.Login(ctx, proof)
	return err
}

// Invalidate clears the credential pair after an unrecoverable auth failure.
func (s *Session) Invalidate(reason error) {
	s.tokens.Clear()

	s.mu.Lock()
	s.state = StateFailed
	s.user = nil
	s.reason = reason
	s.mu.Unlock()
}

// Logout is the explicit teardown: credentials gone, proof forgotten. The
// cart deliberately survives this.
func (s *Session) Logout() {
	s.tokens.Clear()

	s.mu.Lock()
	s.state = StateUnauthenticated
	s.user = nil
	s.proof = ""
	s.reason = nil
	s.mu.Unlock()
}

func (s *Session) AccessToken() (string, bool) {
	cred, ok := s.tokens.Get()
	if !ok {
		return "", false
	}
	return cred.AccessToken, true
}

// IdentityProof returns the retained proof, used by the gateway when the
// deployment forwards it on a header instead of a bearer token.
func (s *Session) IdentityProof() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proof
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// FailureReason reports why the session is in StateFailed, if it is.
func (s *Session) FailureReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Session) fail(reason error) {
	s.mu.Lock()
	s.state = StateFailed
	s.user = nil
	s.reason = reason
	s.mu.Unlock()
}

func (s *Session) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, api.NetworkError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, api.NetworkError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, api.TimeoutError()
		}
		return nil, api.NetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, api.NetworkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, api.Classify(resp.StatusCode, resp.Header, raw)
	}

	return raw, nil
}
