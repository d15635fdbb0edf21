package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

const maxBodyBytes = 1 << 20

// StatusError is returned for a backend reply outside the 2xx range.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s -> %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// Response is a backend reply read into memory.
type Response struct {
	Code int
	Body []byte
}

func (r *Response) OK() bool { return r.Code >= 200 && r.Code < 300 }

func (r *Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type BreakerSettings struct {
	Failures int
	OpenFor  time.Duration
	Interval time.Duration
}

// Upstream wraps the irrigation backend API. Every endpoint path has its
// own circuit breaker so a dead sensor feed does not block pump commands.
type Upstream struct {
	base     string
	client   *http.Client
	settings BreakerSettings
	log      *log.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewUpstream(base string, timeout time.Duration, settings BreakerSettings, logger *log.Logger) *Upstream {
	if logger == nil {
		logger = log.Default()
	}
	if settings.Failures < 1 {
		settings.Failures = 1
	}
	return &Upstream{
		base:     strings.TrimRight(strings.TrimSpace(base), "/"),
		client:   &http.Client{Timeout: timeout},
		settings: settings,
		log:      logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// URL resolves a backend path, used for browser navigations such as the CSV export.
func (u *Upstream) URL(path string) string {
	return u.base + "/" + strings.TrimLeft(path, "/")
}

func (u *Upstream) breaker(path string) *gobreaker.CircuitBreaker {
	u.mu.Lock()
	defer u.mu.Unlock()
	if cb, ok := u.breakers[path]; ok {
		return cb
	}
	fails := uint32(u.settings.Failures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     path,
		Interval: u.settings.Interval,
		Timeout:  u.settings.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			u.log.Printf("upstream: breaker %s %s -> %s", name, from, to)
		},
	})
	u.breakers[path] = cb
	return cb
}

// BreakerStates reports the state of every breaker created so far.
func (u *Upstream) BreakerStates() map[string]string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]string, len(u.breakers))
	for path, cb := range u.breakers {
		out[path] = cb.State().String()
	}
	return out
}

// Do sends a request and reads the whole reply. Transport errors and 5xx
// replies count against the breaker; a 5xx still returns the response
// together with a *StatusError so callers can show the server's message.
// A nil response means nothing usable came back.
func (u *Upstream) Do(ctx context.Context, method, path string, query url.Values, in any) (*Response, error) {
	target := u.URL(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	res, err := u.breaker(path).Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		hr, err := u.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer hr.Body.Close()

		b, err := io.ReadAll(io.LimitReader(hr.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("%s %s read: %w", method, path, err)
		}
		resp := &Response{Code: hr.StatusCode, Body: b}
		if hr.StatusCode >= 500 {
			return resp, &StatusError{Method: method, Path: path, Code: hr.StatusCode}
		}
		return resp, nil
	})

	resp, _ := res.(*Response)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s breaker: %w", path, err)
	}
	return resp, err
}

// GetJSON decodes a 2xx reply into out; any other outcome is an error.
func (u *Upstream) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := u.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{Method: http.MethodGet, Path: path, Code: resp.Code}
	}
	return resp.Decode(out)
}
