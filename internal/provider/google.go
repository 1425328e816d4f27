package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/multiplayers/arena/internal/guard"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// Identity is a normalized identity returned by a social provider.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
}

// GoogleClient validates Google ID tokens against the tokeninfo endpoint.
type GoogleClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	breaker *guard.CircuitBreaker
}

// NewGoogleClient creates a Google token introspection client.
func NewGoogleClient(logger *slog.Logger, breaker *guard.CircuitBreaker) *GoogleClient {
	return &GoogleClient{
		baseURL: googleTokenInfoURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
		breaker: breaker,
	}
}

// Resolve introspects an ID token and returns the normalized identity.
// Any failure (transport, non-2xx, missing subject or email) yields an error;
// the caller decides how to surface it.
func (c *GoogleClient) Resolve(ctx context.Context, idToken string) (*Identity, error) {
	if c.breaker != nil {
		if res := c.breaker.Check(ctx, "google_tokeninfo"); !res.Allowed {
			return nil, fmt.Errorf("google tokeninfo: %s", res.Reason)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure()
		c.logger.Warn("google tokeninfo unreachable", "error", err)
		return nil, fmt.Errorf("tokeninfo call: %w", err)
	}
	defer resp.Body.Close()
	c.recordSuccess()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokeninfo returned %d", resp.StatusCode)
	}

	var body struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode tokeninfo response: %w", err)
	}

	if body.Sub == "" {
		return nil, fmt.Errorf("tokeninfo response missing subject")
	}
	if body.Email == "" {
		return nil, fmt.Errorf("tokeninfo response missing email")
	}
	if body.Name == "" {
		body.Name = body.Email
	}

	return &Identity{SubjectID: body.Sub, Email: body.Email, Name: body.Name}, nil
}

// Only transport-level failures count against the breaker; a 4xx from Google
// means the upstream is healthy and the token is simply bad.
func (c *GoogleClient) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure("google_tokeninfo")
	}
}

func (c *GoogleClient) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess("google_tokeninfo")
	}
}
