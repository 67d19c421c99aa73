// Package agent provides the language model clients behind the extraction
// boundary: provider implementations, a factory, retry handling, and a mock
// for tests.
package agent

import (
	"context"
	"errors"
	"strings"

	"maestro/pkg/agent/llmerrors"
)

// classifyError maps a provider SDK error to a structured error type. The
// SDKs surface HTTP status codes inside error strings, so classification is
// by status code first and by text patterns second.
func classifyError(err error) *llmerrors.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewWithCause(llmerrors.ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewWithCause(llmerrors.ErrorTypeTransient, err, "request canceled")
	}

	errStr := err.Error()
	switch statusCode(errStr) {
	case 401, 403:
		return llmerrors.NewWithCause(llmerrors.ErrorTypeAuth, err, "authentication failed")
	case 429:
		return llmerrors.NewWithCause(llmerrors.ErrorTypeRateLimit, err, "rate limit exceeded")
	case 400:
		return llmerrors.NewWithCause(llmerrors.ErrorTypeBadPrompt, err, "bad request")
	case 500, 502, 503, 504:
		return llmerrors.NewWithCause(llmerrors.ErrorTypeTransient, err, "server error")
	}

	lower := strings.ToLower(errStr)
	switch {
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "eof"),
		strings.Contains(lower, "reset"):
		return llmerrors.NewWithCause(llmerrors.ErrorTypeTransient, err, "network error")
	case strings.Contains(lower, "rate"), strings.Contains(lower, "quota"):
		return llmerrors.NewWithCause(llmerrors.ErrorTypeRateLimit, err, "rate limiting detected")
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "api key"):
		return llmerrors.NewWithCause(llmerrors.ErrorTypeAuth, err, "authentication error")
	case strings.Contains(lower, "invalid"), strings.Contains(lower, "too large"):
		return llmerrors.NewWithCause(llmerrors.ErrorTypeBadPrompt, err, "request error")
	default:
		return llmerrors.NewWithCause(llmerrors.ErrorTypeUnknown, err, "unclassified error")
	}
}

// knownStatusCodes are the codes worth distinguishing in error strings.
//
//nolint:gochecknoglobals // static lookup table
var knownStatusCodes = []string{"400", "401", "403", "429", "500", "502", "503", "504"}

// statusCode extracts an HTTP status code embedded in an SDK error string,
// or 0 when none is found.
func statusCode(errStr string) int {
	lower := strings.ToLower(errStr)
	for _, prefix := range []string{"status code: ", "status: ", "http "} {
		idx := strings.Index(lower, prefix)
		if idx == -1 {
			continue
		}
		rest := errStr[idx+len(prefix):]
		for _, code := range knownStatusCodes {
			if strings.HasPrefix(rest, code) {
				n := 0
				for _, c := range code {
					n = n*10 + int(c-'0')
				}
				return n
			}
		}
	}
	return 0
}
