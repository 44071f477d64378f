package esp

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// mockLogger is a test logger that captures log messages
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockLogger) Debug(msg string, args ...any) { m.log("DEBUG", msg, args...) }
func (m *mockLogger) Info(msg string, args ...any)  { m.log("INFO", msg, args...) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.log("WARN", msg, args...) }
func (m *mockLogger) Error(msg string, args ...any) { m.log("ERROR", msg, args...) }
func (m *mockLogger) Fatal(msg string, args ...any) { m.log("FATAL", msg, args...) }

func (m *mockLogger) log(level, msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	formatted := fmt.Sprintf("[%s] %s", level, msg)
	for i := 0; i+1 < len(args); i += 2 {
		formatted += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	m.messages = append(m.messages, formatted)
}

func (m *mockLogger) output() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.messages, "\n")
}

func TestLoggingTransport(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Unauthorized", http.StatusUnauthorized},
		{"InternalServerError", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer srv.Close()

			logger := &mockLogger{}
			client := &http.Client{Transport: &LoggingTransport{Base: srv.Client().Transport, Logger: logger}}

			resp, err := client.Post(srv.URL+"/WsSMC/Activity.json", "application/x-www-form-urlencoded", nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			resp.Body.Close()

			out := logger.output()
			for _, want := range []string{"[DEBUG] HTTP request", "method=POST", "path=/WsSMC/Activity.json", fmt.Sprintf("status=%d", tt.statusCode)} {
				if !strings.Contains(out, want) {
					t.Errorf("expected log to contain %q, got: %s", want, out)
				}
			}
		})
	}
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestLoggingTransport_Failure(t *testing.T) {
	logger := &mockLogger{}
	client := &http.Client{Transport: &LoggingTransport{Base: failingTransport{}, Logger: logger}}

	_, err := client.Get("http://esp.invalid/WsWorkunits/WUInfo.json")
	if err == nil {
		t.Fatal("expected error")
	}

	out := logger.output()
	if !strings.Contains(out, "[WARN] HTTP request failed") {
		t.Errorf("expected failure to be logged at WARN, got: %s", out)
	}
	if !strings.Contains(out, "connection refused") {
		t.Errorf("expected log to contain the cause, got: %s", out)
	}
}
