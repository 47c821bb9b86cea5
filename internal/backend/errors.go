package backend

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"
)

// Failure taxonomy for narration calls. The controller distinguishes
// authentication failures in the user-facing message; everything else
// collapses into a generic failure.
var (
	// ErrTransport covers network failures and timeouts reaching the backend.
	ErrTransport = errors.New("narration backend unreachable")
	// ErrAuthentication covers credential rejection by the backend.
	ErrAuthentication = errors.New("narration backend rejected credentials")
	// ErrBackend covers any other non-2xx or malformed/empty response.
	ErrBackend = errors.New("narration backend returned an unusable response")
)

// classify maps a raw go-openai error onto the taxonomy, preserving the
// cause for logs via %w-style wrapping of the sentinel.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403 {
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 401 || reqErr.HTTPStatusCode == 403 {
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	return fmt.Errorf("%w: %v", ErrTransport, err)
}
