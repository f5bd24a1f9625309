package llmclient

import "fmt"

// AbortError marks a request that was aborted by the per-request hard
// deadline (spec.md §5: "AbortError surfaces immediately" without retry).
type AbortError struct {
	Timeout string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("llmclient: request aborted after %s", e.Timeout)
}

// StatusError wraps a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llmclient: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) isServerError() bool {
	return e.StatusCode >= 500
}
