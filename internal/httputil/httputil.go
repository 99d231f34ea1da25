// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the source and LLM
// clients. There is no automatic retry here: a failed call is reported to
// the caller as a typed error and retry policy, if any, belongs to the
// calling layer.
package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// maxBodyBytes caps how much of a response body is read. External APIs
// here return at most a few MB per page.
const maxBodyBytes = 10 << 20

// Do waits for the limiter slot (when one is set), executes the request,
// and returns the body for a 2xx response. Non-2xx statuses, transport
// failures, and timeouts come back as *types.NetworkError tagged with the
// source name. The body is fully read and closed.
func Do(ctx context.Context, client *http.Client, limiter *rate.Limiter, req *http.Request, source string) ([]byte, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, &types.NetworkError{Source: source, Reason: err.Error()}
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, &types.NetworkError{Source: source, Timeout: true}
		}
		return nil, &types.NetworkError{Source: source, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &types.NetworkError{Source: source, Reason: "reading response body: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.NetworkError{
			Source: source,
			Status: resp.StatusCode,
			Reason: snippet(body),
		}
	}

	return body, nil
}

// isClientTimeout reports whether the transport error was an http.Client
// timeout rather than a connection failure.
func isClientTimeout(err error) bool {
	var uerr interface{ Timeout() bool }
	if errors.As(err, &uerr) {
		return uerr.Timeout()
	}
	return false
}

// snippet truncates a response body for the caller-visible error reason.
// Full bodies go to the stderr log at the call site, never to the caller.
func snippet(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
