package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/floatchat/internal/domain"
)

// parseAPIError extracts a human-readable error from the API response and wraps it
// with the capability sentinel (for 502 mapping). Rate limits, 5xx and network
// failures are additionally marked domain.ErrTransient so the retry table retries them.
func parseAPIError(err error, what string, wrap error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		base := fmt.Errorf("%s API error %d: %s: %w", what, reqErr.HTTPStatusCode, detail, wrap)
		return markTransient(base, retryableStatus(reqErr.HTTPStatusCode))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		base := fmt.Errorf("%s API error %d: %s: %w", what, apiErr.HTTPStatusCode, apiErr.Message, wrap)
		return markTransient(base, retryableStatus(apiErr.HTTPStatusCode))
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request failed: %v: %w: %w", what, err, wrap, domain.ErrTransient)
	}

	return fmt.Errorf("%s request failed: %v: %w", what, err, wrap)
}

func markTransient(err error, transient bool) error {
	if !transient {
		return err
	}
	return fmt.Errorf("%w: %w", err, domain.ErrTransient)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// errorType is the metrics label for a failed call.
func errorType(err error) string {
	if errors.Is(err, domain.ErrTransient) {
		return "transient"
	}
	return "api_error"
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
