// Package galaxy is a minimal client for the Galaxy Digital volunteer
// platform API, covering login and paginated resource reads.
package galaxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const maxRetries = 5

// Envelope is the common response wrapper: every endpoint nests its payload
// under "data".
type Envelope struct {
	Data json.RawMessage `json:"data"`
}

type loginResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Client talks to one Galaxy Digital account. It logs in lazily and
// re-authenticates when the session token expires mid-run.
type Client struct {
	baseURL  string
	apiKey   string
	email    string
	password string
	httpc    *http.Client
	token    string

	// retryDelay spaces out retries after throttling or server errors.
	retryDelay time.Duration
}

// New creates a Client for the given account.
func New(baseURL, apiKey, email, password string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		email:      email,
		password:   password,
		httpc:      &http.Client{Timeout: 60 * time.Second},
		retryDelay: 5 * time.Second,
	}
}

// Login authenticates and caches the session token.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"key":           c.apiKey,
		"user_email":    c.email,
		"user_password": c.password,
	})
	if err != nil {
		return fmt.Errorf("encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("login failed: status %d: %s", resp.StatusCode, b)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}
	if lr.Data.Token == "" {
		return fmt.Errorf("login response missing token")
	}
	c.token = lr.Data.Token
	log.Debug().Str("base_url", c.baseURL).Msg("authenticated with galaxy api")
	return nil
}

// Get fetches one resource page and returns the raw data payload. Throttled
// and transient-failure responses are retried; an expired session triggers
// one re-login per attempt; a 404 means the query matched nothing and
// returns an empty payload rather than an error.
func (c *Client) Get(ctx context.Context, resource string, params url.Values) (json.RawMessage, error) {
	if c.token == "" {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	endpoint := c.baseURL + "/" + resource
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("building request for %s: %w", resource, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", resource, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var env Envelope
			err := json.NewDecoder(resp.Body).Decode(&env)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("decoding %s response: %w", resource, err)
			}
			return env.Data, nil

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return json.RawMessage("[]"), nil

		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			log.Warn().Str("resource", resource).Msg("session expired, re-authenticating")
			if err := c.Login(ctx); err != nil {
				return nil, err
			}

		case resp.StatusCode == http.StatusTooManyRequests:
			delay := c.retryDelay
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
					delay = time.Duration(secs) * time.Second
				}
			}
			resp.Body.Close()
			log.Warn().Str("resource", resource).Dur("delay", delay).Msg("throttled, backing off")
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}

		case resp.StatusCode >= 500:
			resp.Body.Close()
			log.Warn().Str("resource", resource).Int("status", resp.StatusCode).
				Int("attempt", attempt+1).Msg("server error, retrying")
			if err := sleepCtx(ctx, c.retryDelay); err != nil {
				return nil, err
			}

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, fmt.Errorf("fetching %s: status %d: %s", resource, resp.StatusCode, b)
		}
	}
	return nil, fmt.Errorf("fetching %s: retries exhausted", resource)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
