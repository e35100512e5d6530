// Package upstream talks to the recipe server's taxonomy admin API. The
// server owns the draft: every call carries the caller's version token and
// optimistic-concurrency failures come back as domain error sentinels.
package upstream

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/errors"
	"github.com/saucierapp/saucier-server/internal/ratelimit"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRPS     = 5.0
	defaultBurst   = 10

	// maxRetryElapsed bounds the exponential backoff on transient
	// upstream failures.
	maxRetryElapsed = 20 * time.Second

	userAgent = "Saucier/1.0"
)

// LookupKinds are the reference collections the lookup endpoint can resolve.
var LookupKinds = []string{"foods", "households"}

// KnownLookupKind reports whether kind is a resolvable lookup collection.
func KnownLookupKind(kind string) bool {
	for _, k := range LookupKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Config holds the connection settings for the recipe server.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// HTTPClient is a rate-limited client for the recipe server's taxonomy
// admin API.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// NewHTTP creates a recipe-server client.
func NewHTTP(cfg Config, logger *slog.Logger) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RPS <= 0 {
		cfg.RPS = defaultRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.New(cfg.RPS, cfg.Burst),
		logger:  logger,
	}
}

// LoadDraft fetches the full draft snapshot.
func (c *HTTPClient) LoadDraft(ctx context.Context) (*domain.Snapshot, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/admin/taxonomy/draft", "", nil)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(body)
}

// SaveDraft writes the given resources into the server draft under the
// version token and returns the snapshot the server minted for the result.
func (c *HTTPClient) SaveDraft(ctx context.Context, version string, partial domain.Draft) (*domain.Snapshot, error) {
	payload, err := json.Marshal(partial)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode draft")
	}
	body, err := c.doRequest(ctx, http.MethodPut, "/api/admin/taxonomy/draft", version, payload)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(body)
}

// ValidateDraft runs the server's draft-wide validation for the given
// version.
func (c *HTTPClient) ValidateDraft(ctx context.Context, version string) (*domain.ValidationResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/admin/taxonomy/draft/validate", version, nil)
	if err != nil {
		return nil, err
	}
	var result domain.ValidationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(err, errors.CodeUpstream, "decode validation result")
	}
	return &result, nil
}

// PublishDraft commits the draft version to the live taxonomy.
func (c *HTTPClient) PublishDraft(ctx context.Context, version string) (*domain.PublishReceipt, *domain.Snapshot, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/admin/taxonomy/draft/publish", version, nil)
	if err != nil {
		return nil, nil, err
	}
	var out struct {
		Receipt  domain.PublishReceipt `json:"receipt"`
		Snapshot *domain.Snapshot      `json:"snapshot"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeUpstream, "decode publish response")
	}
	if out.Snapshot == nil {
		return nil, nil, errors.Upstream("publish response missing snapshot")
	}
	return &out.Receipt, out.Snapshot, nil
}

// Lookup resolves one reference collection to {id, name} pairs.
func (c *HTTPClient) Lookup(ctx context.Context, kind string) ([]domain.Ref, error) {
	if !KnownLookupKind(kind) {
		return nil, errors.NotFoundf("unknown lookup kind %q", kind)
	}
	body, err := c.doRequest(ctx, http.MethodGet, "/api/admin/taxonomy/lookup/"+kind, "", nil)
	if err != nil {
		return nil, err
	}
	var refs []domain.Ref
	if err := json.Unmarshal(body, &refs); err != nil {
		return nil, errors.Wrap(err, errors.CodeUpstream, "decode lookup response")
	}
	return refs, nil
}

// doRequest executes one API call with rate limiting and bounded retries on
// transient failures. Concurrency failures (409, 412, 428) are returned
// immediately; retrying them under the same token can never succeed.
func (c *HTTPClient) doRequest(ctx context.Context, method, path, version string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx, "taxonomy"); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	operation := func() ([]byte, error) {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if version != "" {
			req.Header.Set("If-Match", version)
		}

		c.logger.Debug("recipe server request", "method", method, "path", path)

		resp, err := c.http.Do(req)
		if err != nil {
			// Network errors are retryable unless the context is done.
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if apiErr := c.checkStatus(resp.StatusCode, body); apiErr != nil {
			if retryableStatus(resp.StatusCode) {
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}
		return body, nil
	}

	// A fresh BackOff per call; they carry state and must not be shared.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxRetryElapsed
	body, err := backoff.RetryWithData(operation, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// checkStatus maps API status codes onto the domain error taxonomy.
func (c *HTTPClient) checkStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusConflict:
		return errors.VersionConflict("draft was modified by another session").WithDetails(serverMessage(body))
	case status == http.StatusPreconditionFailed:
		return errors.StaleVersion("version token is no longer current").WithDetails(serverMessage(body))
	case status == http.StatusPreconditionRequired:
		return errors.ValidationRequired("server requires a current validation").WithDetails(serverMessage(body))
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return errors.Validation("recipe server rejected the request").WithDetails(serverMessage(body))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Upstream("recipe server rejected our credentials")
	case status == http.StatusNotFound:
		return errors.NotFound("recipe server has no such resource")
	default:
		return errors.Upstreamf("recipe server returned status %d", status).WithDetails(serverMessage(body))
	}
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// serverMessage extracts the server's error detail, falling back to the raw
// body when it is not the usual {"detail": ...} JSON.
func serverMessage(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}

func decodeSnapshot(body []byte) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, errors.Wrap(err, errors.CodeUpstream, "decode snapshot")
	}
	if snap.Version == "" {
		return nil, errors.Upstream("snapshot response missing version token")
	}
	snap.Draft = snap.Draft.Normalize()
	snap.Managed = snap.Managed.Normalize()
	return &snap, nil
}
