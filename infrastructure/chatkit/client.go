// Package chatkit proxies session creation to the XpertAI ChatKit API.
package chatkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	appErrors "mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"
)

const (
	sessionsPath   = "/v1/chatkit/sessions"
	defaultTimeout = 30 * time.Second
)

// Config holds the upstream settings
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// Circuit breaker tuning
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns the settings used when only credentials are known
func DefaultConfig(apiKey, baseURL string) Config {
	return Config{
		APIKey:           apiKey,
		BaseURL:          strings.TrimRight(baseURL, "/"),
		Timeout:          defaultTimeout,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		OpenTimeout:      60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Session is the upstream answer relayed to the browser
type Session struct {
	ClientSecret string          `json:"client_secret"`
	ExpiresAfter json.RawMessage `json:"expires_after,omitempty"`
}

type sessionRequest struct {
	Assistant struct {
		ID string `json:"id"`
	} `json:"assistant"`
	User string `json:"user"`
}

// Client issues ChatKit sessions through a circuit breaker
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewClient creates a client. metrics may be nil.
func NewClient(cfg Config, metrics *observability.Collector, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: metrics,
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chatkit",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Upstream 4xx answers mean the API is healthy.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			appErr := appErrors.GetAppError(err)
			return appErr != nil && appErr.HTTPStatus < http.StatusInternalServerError &&
				appErr.Type == appErrors.ErrorTypeExternal
		},
	})
	return c
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// CreateSession asks the upstream API for a session bound to userID
func (c *Client) CreateSession(ctx context.Context, xpertID, userID string) (*Session, error) {
	if !c.Configured() {
		return nil, appErrors.NewInternalError("Missing XPERTAI_API_KEY")
	}
	if xpertID == "" {
		return nil, appErrors.NewValidationError("Missing xpertId")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doCreate(ctx, xpertID, userID)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			c.metrics.RecordUpstream("breaker_open")
			return nil, appErrors.NewUnavailableError("chatkit").WithCause(err)
		}
		return nil, err
	}
	return result.(*Session), nil
}

func (c *Client) doCreate(ctx context.Context, xpertID, userID string) (*Session, error) {
	var payload sessionRequest
	payload.Assistant.ID = xpertID
	payload.User = userID
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.NewInternalError("failed to encode session request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+sessionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, appErrors.NewInternalError("failed to build session request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstream("error")
		c.logger.Error("Session API unreachable", zap.Error(err))
		return nil, appErrors.NewNetworkError(fmt.Sprintf("Failed to reach API: %v", err), err)
	}
	defer resp.Body.Close()

	c.metrics.RecordUpstream(strconv.Itoa(resp.StatusCode))
	c.logger.Debug("Session API responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.NewNetworkError(fmt.Sprintf("Failed to reach API: %v", err), err)
	}

	var decoded map[string]json.RawMessage
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := upstreamMessage(decoded, resp.StatusCode)
		c.logger.Warn("Session API returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("error", msg),
		)
		return nil, appErrors.NewExternalError(msg, resp.StatusCode)
	}

	if decodeErr != nil {
		return nil, appErrors.NewExternalError("Invalid response from API", http.StatusBadGateway).WithCause(decodeErr)
	}

	var session Session
	if secret, ok := decoded["client_secret"]; ok {
		if err := json.Unmarshal(secret, &session.ClientSecret); err != nil {
			return nil, appErrors.NewExternalError("Invalid response from API", http.StatusBadGateway).WithCause(err)
		}
	}
	if session.ClientSecret == "" {
		return nil, appErrors.NewExternalError("Missing client_secret", http.StatusBadGateway)
	}
	session.ExpiresAfter = decoded["expires_after"]
	return &session, nil
}

// upstreamMessage picks the upstream "error" field, falling back to the
// status text
func upstreamMessage(body map[string]json.RawMessage, status int) string {
	if raw, ok := body["error"]; ok && len(raw) > 0 && string(raw) != "null" {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
		} else {
			return string(raw)
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Unknown error"
}
