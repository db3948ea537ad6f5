package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// Error codes attached to provider failures.
const (
	ErrCodeRateLimit     = "rate_limit"
	ErrCodeUnavailable   = "unavailable"
	ErrCodeAuth          = "auth"
	ErrCodeInvalidModel  = "invalid_model"
	ErrCodeContentPolicy = "content_policy"
	ErrCodeQuotaExceeded = "quota_exceeded"
	ErrCodeTimeout       = "timeout"
	ErrCodeCanceled      = "canceled"
	ErrCodeConnection    = "connection"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeProvider      = "provider_error"
)

// Error is a classified provider failure.
type Error struct {
	Provider   string
	Code       string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm %s: %s (status %d): %v", e.Provider, e.Code, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s: %s: %v", e.Provider, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var statusPattern = regexp.MustCompile(`(?:status(?: code)?|http|error|code)[:\s]+([1-5]\d\d)\b`)

var messagePatterns = []struct {
	code     string
	status   int
	patterns []string
}{
	{ErrCodeQuotaExceeded, http.StatusTooManyRequests, []string{"insufficient_quota", "quota exceeded", "quota_exceeded"}},
	{ErrCodeRateLimit, http.StatusTooManyRequests, []string{
		"rate limit", "rate-limit", "rate_limit", "ratelimit", "too many requests", "throttl",
	}},
	{ErrCodeUnavailable, http.StatusServiceUnavailable, []string{
		"service unavailable", "temporarily unavailable", "overloaded", "try again later",
	}},
	{ErrCodeAuth, http.StatusUnauthorized, []string{
		"unauthorized", "invalid api key", "invalid_api_key", "authentication", "permission denied",
	}},
	{ErrCodeInvalidModel, http.StatusNotFound, []string{"invalid model", "model not found", "model_not_found"}},
	{ErrCodeContentPolicy, http.StatusBadRequest, []string{"content policy", "safety"}},
	{ErrCodeTimeout, http.StatusGatewayTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ErrCodeConnection, http.StatusBadGateway, []string{
		"connection reset", "connection refused", "no such host", "network is unreachable",
	}},
}

// classifyError maps a raw provider error to an *Error, inspecting context
// errors first, then an embedded HTTP status, then known message fragments.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	out := &Error{Provider: provider, Code: ErrCodeProvider, Err: err}
	switch {
	case errors.Is(err, context.Canceled):
		out.Code = ErrCodeCanceled
		return out
	case errors.Is(err, context.DeadlineExceeded):
		out.Code = ErrCodeTimeout
		out.StatusCode = http.StatusGatewayTimeout
		return out
	}
	lower := strings.ToLower(err.Error())
	for _, entry := range messagePatterns {
		for _, pattern := range entry.patterns {
			if strings.Contains(lower, pattern) {
				out.Code = entry.code
				out.StatusCode = entry.status
				return out
			}
		}
	}
	if status := extractStatus(lower); status > 0 {
		out.StatusCode = status
		out.Code = codeForStatus(status)
	}
	return out
}

func extractStatus(msg string) int {
	match := statusPattern.FindStringSubmatch(msg)
	if len(match) < 2 {
		return 0
	}
	status, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return status
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeAuth
	case status == http.StatusNotFound:
		return ErrCodeInvalidModel
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return ErrCodeTimeout
	case status >= 500:
		return ErrCodeUnavailable
	case status >= 400:
		return ErrCodeBadRequest
	default:
		return ErrCodeProvider
	}
}

// ErrorCode returns the classification of err, or "" when it is not a provider error.
func ErrorCode(err error) string {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Code
	}
	return ""
}
