package resolverrules

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// Response is the view of an HTTP response the rules operate on.
//
// Body readers may be single-use depending on the implementation;
// ApplyRules never reads the body more than the selected applier asks for.
type Response interface {
	Status() int
	StatusText() string
	Text(ctx context.Context) (string, error)
	JSON(ctx context.Context) (any, error)
}

// infoer is implemented by responses that expose more than status fields to templates.
type infoer interface {
	Info() map[string]any
}

// ResponseInfo returns the template view of res: status, statusText and ok,
// plus headers and url when the response provides them.
func ResponseInfo(res Response) map[string]any {
	if res == nil {
		return map[string]any{}
	}
	if in, ok := res.(infoer); ok {
		return in.Info()
	}
	return baseInfo(res.Status(), res.StatusText())
}

func baseInfo(status int, statusText string) map[string]any {
	return map[string]any{
		"status":     status,
		"statusText": statusText,
		"ok":         status >= 200 && status < 300,
	}
}

func headerInfo(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for k, vals := range h {
		out[strings.ToLower(k)] = strings.Join(vals, ", ")
	}
	return out
}

func parseJSON(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// HTTPResponse adapts *http.Response. The body is read and closed on first
// access; later reads return the same bytes.
type HTTPResponse struct {
	resp *http.Response

	once sync.Once
	body []byte
	err  error
}

// NewHTTPResponse wraps resp. resp must not be nil.
func NewHTTPResponse(resp *http.Response) *HTTPResponse {
	return &HTTPResponse{resp: resp}
}

func (r *HTTPResponse) Status() int { return r.resp.StatusCode }

// StatusText returns the reason phrase, e.g. "Not Found".
func (r *HTTPResponse) StatusText() string {
	s := strings.TrimSpace(r.resp.Status)
	code := strconv.Itoa(r.resp.StatusCode)
	if strings.HasPrefix(s, code) {
		s = strings.TrimSpace(strings.TrimPrefix(s, code))
	}
	if s == "" {
		s = http.StatusText(r.resp.StatusCode)
	}
	return s
}

// Header returns the response headers.
func (r *HTTPResponse) Header() http.Header { return r.resp.Header }

func (r *HTTPResponse) Text(ctx context.Context) (string, error) {
	b, err := r.read(ctx)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *HTTPResponse) JSON(ctx context.Context) (any, error) {
	b, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	return parseJSON(string(b))
}

func (r *HTTPResponse) Info() map[string]any {
	out := baseInfo(r.Status(), r.StatusText())
	out["headers"] = headerInfo(r.resp.Header)
	if r.resp.Request != nil && r.resp.Request.URL != nil {
		out["url"] = r.resp.Request.URL.String()
	}
	return out
}

func (r *HTTPResponse) read(ctx context.Context) ([]byte, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	r.once.Do(func() {
		if r.resp.Body == nil {
			return
		}
		defer r.resp.Body.Close() //nolint:errcheck
		r.body, r.err = io.ReadAll(r.resp.Body)
	})
	return r.body, r.err
}

// StaticResponse is an in-memory response, used for recorded fixtures.
type StaticResponse struct {
	Code   int
	Reason string
	Body   string
	Header http.Header
	// ReadErr, when set, is returned by every body read.
	ReadErr error
}

func (r *StaticResponse) Status() int { return r.Code }

func (r *StaticResponse) StatusText() string {
	if strings.TrimSpace(r.Reason) != "" {
		return r.Reason
	}
	return http.StatusText(r.Code)
}

func (r *StaticResponse) Text(ctx context.Context) (string, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	if r.ReadErr != nil {
		return "", r.ReadErr
	}
	return r.Body, nil
}

func (r *StaticResponse) JSON(ctx context.Context) (any, error) {
	text, err := r.Text(ctx)
	if err != nil {
		return nil, err
	}
	return parseJSON(text)
}

func (r *StaticResponse) Info() map[string]any {
	out := baseInfo(r.Status(), r.StatusText())
	if r.Header != nil {
		out["headers"] = headerInfo(r.Header)
	}
	return out
}
