package esp

import (
	"context"
	"errors"
	"net"
)

// IsTimeout reports whether err is a transport timeout: a client or context
// deadline, or a network error that timed out.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
