// Package llm - errors.go classifies provider failures.
package llm

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// quotaMarkers are lowercase fragments that identify a quota or rate-limit message.
var quotaMarkers = []string{"quota", "rate limit", "429", "resource_exhausted", "resource exhausted"}

// IsQuotaError reports whether err signals that the provider is refusing calls
// because of a quota or rate limit, as opposed to a one-off failure.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}

	if st, ok := status.FromError(unwrapAll(err)); ok && st.Code() == codes.ResourceExhausted {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// unwrapAll returns the innermost wrapped error so gRPC status detection sees
// the original value.
func unwrapAll(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
