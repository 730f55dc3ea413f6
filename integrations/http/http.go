package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aponysus/await/waiter"
)

// maxErrorBody bounds how much of a non-2xx body is kept for error codes.
const maxErrorBody = 64 << 10

// RequestFunc builds the request for one attempt. It is called once per
// attempt so request bodies never need to be replayed.
type RequestFunc[In any] func(ctx context.Context, input In) (*http.Request, error)

// Invoker returns a waiter invoker that sends the request built by build and
// decodes a 2xx JSON body into Out. An empty body leaves Out at its zero
// value. Non-2xx responses become *StatusError.
func Invoker[In, Out any](client *http.Client, build RequestFunc[In]) waiter.Invoker[In, Out] {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, input In) (Out, error) {
		var out Out
		if build == nil {
			return out, errors.New("await: http invoker has no request builder")
		}
		req, err := build(ctx, input)
		if err != nil {
			return out, err
		}
		req = req.WithContext(ctx)

		resp, err := client.Do(req)
		if err != nil {
			return out, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return out, &StatusError{
				Code:   resp.StatusCode,
				Method: req.Method,
				URL:    req.URL.String(),
				Header: resp.Header,
				Body:   body,
			}
		}

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
			return out, fmt.Errorf("await: decoding %s %s response: %w", req.Method, req.URL, err)
		}
		return out, nil
	}
}

// Get returns an invoker that GETs url on every attempt.
func Get[Out any](client *http.Client, url string) waiter.Invoker[struct{}, Out] {
	return Invoker[struct{}, Out](client, func(ctx context.Context, _ struct{}) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
}

// StatusError is a non-2xx response. It implements classify.APIError so
// errorType acceptors can match it.
type StatusError struct {
	Code   int
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: http status %s", e.Method, e.URL, strconv.Itoa(e.Code))
}

func (e *StatusError) HTTPStatusCode() int { return e.Code }

// ErrorCode returns the code named by a JSON error body ("code", "Code",
// "errorCode" or "__type", whose "namespace#Name" form yields Name). Without
// one it returns the status text with spaces removed, e.g. "NotFound".
func (e *StatusError) ErrorCode() string {
	if code := codeFromBody(e.Body); code != "" {
		return code
	}
	return strings.ReplaceAll(http.StatusText(e.Code), " ", "")
}

func codeFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	for _, name := range []string{"code", "Code", "errorCode", "__type"} {
		s, ok := fields[name].(string)
		if !ok || s == "" {
			continue
		}
		if i := strings.LastIndexByte(s, '#'); i >= 0 {
			s = s[i+1:]
		}
		if i := strings.IndexByte(s, ':'); i >= 0 {
			s = s[:i]
		}
		if s != "" {
			return s
		}
	}
	return ""
}
