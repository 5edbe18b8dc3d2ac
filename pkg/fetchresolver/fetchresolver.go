// Package fetchresolver performs HTTP requests and resolves the responses
// with resolverrules.
package fetchresolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/r9s-ai/fetch-resolver/pkg/resolverrules"
)

// Trace describes one resolved request.
type Trace struct {
	Method  string
	URL     string
	Status  int
	Latency time.Duration
	// Rule is the index of the applied rule; len(cfg.Rules) means the fallback rule.
	Rule  int
	Apply string
	Err   error
}

type Client struct {
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Header is added to every request unless the request already sets the key.
	Header    http.Header
	UserAgent string
	// OnTrace, when set, is called once per request after rules were applied.
	OnTrace func(Trace)
}

// Get issues a GET request and resolves the response.
func (c *Client) Get(ctx context.Context, rawURL string, cfg *resolverrules.Config) (any, error) {
	return c.Do(ctx, http.MethodGet, rawURL, nil, cfg)
}

// Do builds a request from method, rawURL and body, then resolves the response.
func (c *Client) Do(ctx context.Context, method, rawURL string, body io.Reader, cfg *resolverrules.Config) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("url is empty")
	}
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	return c.Resolve(ctx, req, cfg)
}

// Resolve sends req and applies cfg to the response.
func (c *Client) Resolve(ctx context.Context, req *http.Request, cfg *resolverrules.Config) (any, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = &resolverrules.Config{}
	}
	if c == nil {
		c = &Client{}
	}
	req = req.Clone(ctx)
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	mergeMissingHeaders(req.Header, c.Header)
	if ua := strings.TrimSpace(c.UserAgent); ua != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", ua)
	}

	client := http.DefaultClient
	if c.HTTPClient != nil {
		client = c.HTTPClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", req.Method, req.URL, err)
	}
	res := resolverrules.NewHTTPResponse(resp)
	// Drains and closes the body when no applier read it.
	defer func() { _, _ = res.Text(context.Background()) }()

	rule, idx := resolverrules.SelectRule(cfg, res)
	out, err := resolverrules.ApplyRule(ctx, cfg, rule, res)
	if c.OnTrace != nil {
		c.OnTrace(Trace{
			Method:  req.Method,
			URL:     req.URL.String(),
			Status:  resp.StatusCode,
			Latency: time.Since(start),
			Rule:    idx,
			Apply:   applyLabel(rule),
			Err:     err,
		})
	}
	return out, err
}

func applyLabel(r resolverrules.Rule) string {
	if r.Apply.IsDirect() {
		return "func"
	}
	return r.Apply.Kind()
}

func mergeMissingHeaders(dst, src http.Header) {
	for k, vals := range src {
		if len(dst.Values(k)) > 0 {
			continue
		}
		for _, v := range vals {
			dst.Add(k, v)
		}
	}
}
