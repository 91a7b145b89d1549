package logging

import (
	"context"
	"errors"
	"net"
	"strings"
)

func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429") ||
		strings.Contains(strings.ToLower(msg), "too many requests")
}

// IsTransient reports whether an RPC error is worth retrying. Reverts and
// malformed calls are not; throttling, gateway errors and timeouts are.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || IsRateLimit(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") {
		return false
	}
	for _, s := range []string{"502", "503", "504", "connection reset", "connection refused", "eof", "timeout"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
