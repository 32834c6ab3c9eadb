package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"pasarku-client/internal/config"
	"pasarku-client/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Outbound throttle for a single client process.
const (
	outboundRate  = rate.Limit(20)
	outboundBurst = 40
)

// Session is the slice of the auth session the gateway drives on a 401.
type Session interface {
	AccessToken() (string, bool)
	IdentityProof() string
	Refresh(ctx context.Context) error
	Relogin(ctx context.Context) error
	Invalidate(reason error)
}

// Gateway wraps every outbound call: credential injection, per-call deadline,
// error classification and the refresh-and-retry protocol.
type Gateway struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	mode           config.AuthMode
	initDataHeader string
	session        Session
	limiter        *rate.Limiter
}

func NewGateway(cfg *config.Config, session Session) *Gateway {
	return &Gateway{
		baseURL:        cfg.APIBaseURL,
		httpClient:     &http.Client{},
		timeout:        cfg.RequestTimeout,
		mode:           cfg.AuthMode,
		initDataHeader: cfg.InitDataHeader,
		session:        session,
		limiter:        rate.NewLimiter(outboundRate, outboundBurst),
	}
}

// Call issues one logical request. On a 401 it refreshes the session and
// retries exactly once; if the retry is rejected again it attempts a full
// re-login before giving up. Every other failure kind surfaces immediately —
// the gateway never auto-retries rate limits or validation errors.
//
// A no-content success resolves to a nil body.
func (g *Gateway) Call(ctx context.Context, method, path string, body any, requiresAuth bool) ([]byte, error) {
	ctx = logger.WithRequestID(ctx, logger.NewRequestID())
	log := logger.FromCtx(ctx).With(
		zap.String("method", method),
		zap.String("path", path),
	)

	if err := g.limiter.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, TimeoutError()
		}
		return nil, NetworkError(err)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, ValidationError("unencodable request body")
		}
	}

	respBody, apiErr := g.attempt(ctx, log, method, path, payload, requiresAuth)
	if apiErr == nil {
		return respBody, nil
	}
	if apiErr.Kind != KindAuth || !requiresAuth {
		return nil, apiErr
	}

	// First recovery: refresh the credential, retry once.
	log.Info("retrying after token refresh")
	if err := g.session.Refresh(ctx); err != nil {
		return nil, apiErr
	}
	respBody, apiErr = g.attempt(ctx, log, method, path, payload, requiresAuth)
	if apiErr == nil {
		return respBody, nil
	}
	if apiErr.Kind != KindAuth {
		return nil, apiErr
	}

	// Second recovery: full re-login with the retained identity proof.
	log.Info("retrying after re-login")
	if err := g.session.Relogin(ctx); err != nil {
		g.session.Invalidate(apiErr)
		return nil, apiErr
	}
	respBody, apiErr = g.attempt(ctx, log, method, path, payload, requiresAuth)
	if apiErr == nil {
		return respBody, nil
	}
	if apiErr.Kind == KindAuth {
		g.session.Invalidate(apiErr)
	}
	return nil, apiErr
}

// CallJSON decodes a successful response into out. A nil out or an empty
// response body skips decoding entirely.
func (g *Gateway) CallJSON(ctx context.Context, method, path string, body, out any, requiresAuth bool) error {
	respBody, err := g.Call(ctx, method, path, body, requiresAuth)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Kind: KindServer, Message: "malformed response body"}
	}
	return nil
}

func (g *Gateway) attempt(ctx context.Context, log *zap.Logger, method, path string, payload []byte, requiresAuth bool) ([]byte, *Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, NetworkError(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", logger.RequestIDFrom(ctx))

	if requiresAuth {
		switch g.mode {
		case config.ModeInitData:
			req.Header.Set(g.initDataHeader, g.session.IdentityProof())
		default:
			if token, ok := g.session.AccessToken(); ok {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}
	}

	start := time.Now()

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			log.Warn("request timed out", zap.Duration("after", time.Since(start)))
			return nil, TimeoutError()
		}
		log.Warn("request failed before reaching server", zap.Error(err))
		return nil, NetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NetworkError(err)
	}

	log.Info("api call",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, Classify(resp.StatusCode, resp.Header, respBody)
	}

	if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil, nil
	}

	return respBody, nil
}
