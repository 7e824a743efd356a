// internal/adapters/backend/client.go

// Package backend is a PackageRepository that talks to a remote packages API
// speaking the same envelope as this service.
package backend

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"travel_wizard/internal/adapters/observability"
	"travel_wizard/internal/domain"
)

const maxAttempts = 4

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

var _ domain.PackageRepository = (*Client)(nil)

func New(base string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("backend base URL: %w", err)
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type writeBody struct {
	Status domain.PackageStatus `json:"status,omitempty"`
	Fields domain.Draft         `json:"fields"`
}

// ---- PackageRepository ----

func (c *Client) Create(ctx context.Context, d domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	var out domain.PackageRecord
	err := c.do(ctx, http.MethodPost, "/v1/packages", "create", writeBody{Status: status, Fields: d}, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, id string, partial domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	var out domain.PackageRecord
	err := c.do(ctx, http.MethodPatch, "/v1/packages/"+url.PathEscape(id), "update", writeBody{Status: status, Fields: partial}, &out)
	return out, err
}

func (c *Client) GetByID(ctx context.Context, id string) (domain.PackageRecord, error) {
	var out domain.PackageRecord
	err := c.do(ctx, http.MethodGet, "/v1/packages/"+url.PathEscape(id), "get", nil, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := c.do(ctx, http.MethodDelete, "/v1/packages/"+url.PathEscape(id), "delete", nil, &ok)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return ok, err
}

func (c *Client) List(ctx context.Context, f domain.ListFilter, s domain.SortSpec, p domain.PageRequest) (domain.Page[domain.PackageRecord], error) {
	var out domain.Page[domain.PackageRecord]
	err := c.do(ctx, http.MethodGet, "/v1/packages?"+listQuery(f, s, p).Encode(), "list", nil, &out)
	return out, err
}

func listQuery(f domain.ListFilter, s domain.SortSpec, p domain.PageRequest) url.Values {
	q := url.Values{}
	if f.Type != nil {
		q.Set("type", string(*f.Type))
	}
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	if f.Search != "" {
		q.Set("q", f.Search)
	}
	if f.Destination != "" {
		q.Set("destination", f.Destination)
	}
	if s.Field != "" {
		v := string(s.Field)
		if s.Desc {
			v = "-" + v
		}
		q.Set("sort", v)
	}
	p = p.Normalize()
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.Limit))
	return q
}

// ---- Internals ----

var (
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrForbidden    = errors.New("backend: forbidden")
	ErrRejected     = errors.New("backend: request rejected")
)

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// do sends one call with client-side rate limiting and retries, then unwraps
// the envelope into out. Retries on 429 and transient 5xx, honoring
// Retry-After when provided. POST is only retried on 429, when the server
// has not acted on it.
func (c *Client) do(ctx context.Context, method, path, endpoint string, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		payload = b
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		last := i == maxAttempts-1
		// build a fresh request each attempt
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "travel-wizard/1.0")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("backend", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if method != http.MethodPost && !last && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("backend", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := decodeEnvelope(resp.Body, out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("backend %s: remote %d", endpoint, resp.StatusCode)
			retryable := method != http.MethodPost || resp.StatusCode == http.StatusTooManyRequests
			if retryable && !last && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			err := envelopeError(resp)
			resp.Body.Close()
			return err
		}
	}
	return lastErr
}

func decodeEnvelope(r io.Reader, out any) error {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", ErrRejected, firstNonEmpty(env.Error, env.Message))
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// envelopeError reads a small error body for diagnostics.
func envelopeError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var env envelope
	if json.Unmarshal(b, &env) == nil && (env.Error != "" || env.Message != "") {
		return fmt.Errorf("%w (%d): %s", ErrRejected, resp.StatusCode, firstNonEmpty(env.Error, env.Message))
	}
	return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 100ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 100 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
