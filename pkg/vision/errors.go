package vision

import (
	"errors"
	"net"
	"strings"
	"syscall"

	sdk "github.com/anthropics/anthropic-sdk-go"
)

// IsTransient returns true if the error is safe to retry: a network timeout,
// a dropped connection, or a rate-limit/server-side API status.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return isTransientStatus(apiErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP transports.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"context deadline exceeded",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

func isTransientStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504, // Gateway Timeout
		529: // API overloaded
		return true
	default:
		return false
	}
}
