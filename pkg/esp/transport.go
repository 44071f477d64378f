package esp

import (
	"net/http"
	"time"

	"github.com/hpcc-systems/gohpcc/internal/shared/logging"
)

// LoggingTransport logs every request with method, path, status, size and
// duration.
type LoggingTransport struct {
	Base   http.RoundTripper
	Logger logging.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	start := time.Now()

	resp, err := base.RoundTrip(req)

	duration := time.Since(start)
	if err != nil {
		t.Logger.Warn("HTTP request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return nil, err
	}
	t.Logger.Debug("HTTP request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"bytes", resp.ContentLength,
		"duration_ms", duration.Milliseconds(),
	)
	return resp, nil
}
