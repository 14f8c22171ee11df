// Package apiclient calls the prospetti API through an ordered list of base
// URLs, falling over to the next one when a base is unreachable or answers
// with a status that another deployment may serve.
package apiclient

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
)

// ErrNoBase is returned when every candidate was skipped.
var ErrNoBase = errors.New("apiclient: no reachable base url")

// Retryable are the statuses that fall through to the next candidate.
var Retryable = map[int]bool{
	http.StatusNotFound:            true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

type Client struct {
	HTTP   *http.Client
	Header http.Header

	mu        sync.Mutex
	bases     []string
	dead      map[string]bool
	preferred int
}

// New returns a client over bases, tried in order. Duplicates and blanks are
// dropped and trailing slashes trimmed.
func New(bases ...string) *Client {
	seen := map[string]bool{}
	var clean []string
	for _, b := range bases {
		b = strings.TrimRight(strings.TrimSpace(b), "/")
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		clean = append(clean, b)
	}
	return &Client{
		HTTP:   &http.Client{Timeout: 30 * time.Second},
		Header: http.Header{},
		bases:  clean,
		dead:   map[string]bool{},
	}
}

// Bases returns the candidates in the order the next call will try them.
func (c *Client) Bases() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for i := range c.bases {
		b := c.bases[(c.preferred+i)%len(c.bases)]
		if !c.dead[b] {
			out = append(out, b)
		}
	}
	return out
}

// Do sends method path to each live candidate. A network failure marks the
// base dead for the lifetime of the client. The response of the first base
// answering with a non-retryable status is returned; the last candidate's
// response is returned whatever its status.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	bases := c.Bases()
	if len(bases) == 0 {
		return nil, ErrNoBase
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var lastErr error
	for i, base := range bases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, base+path, bodyReader(body))
		if err != nil {
			return nil, fmt.Errorf("apiclient: build request: %w", err)
		}
		for k, v := range c.Header {
			req.Header[k] = v
		}
		if body != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.markDead(base)
			lastErr = fmt.Errorf("apiclient: %s: %w", base, err)
			continue
		}
		if Retryable[resp.StatusCode] && i < len(bases)-1 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			continue
		}
		c.prefer(base)
		return resp, nil
	}
	return nil, lastErr
}

// GetJSON fetches path and decodes a 2xx body into dst.
func (c *Client) GetJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("apiclient: decode %s: %w", path, err)
	}
	return nil
}

// StatusError is a non-2xx answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apiclient: status %d: %s", e.Code, e.Body)
}

func (c *Client) markDead(base string) {
	c.mu.Lock()
	c.dead[base] = true
	c.mu.Unlock()
}

func (c *Client) prefer(base string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, b := range c.bases {
		if b == base {
			c.preferred = i
			return
		}
	}
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}
