// Package auth holds the connection and credential context for an ESP
// server.
package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/hpcc-systems/gohpcc/pkg/hpccerr"
	"github.com/hpcc-systems/gohpcc/pkg/options"
)

const (
	DefaultPort     = 8010
	DefaultProtocol = "https"
)

// Auth identifies an ESP server and the credentials used against it.
type Auth struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Protocol    string
	RequireAuth bool

	// HTTPClient is used for every request; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// New returns an Auth with the default port and protocol that requires
// credentials.
func New(host, username, password string) *Auth {
	return &Auth{
		Host:        host,
		Port:        DefaultPort,
		Username:    username,
		Password:    password,
		Protocol:    DefaultProtocol,
		RequireAuth: true,
	}
}

// URL returns the server base URL, e.g. https://host:8010.
func (a *Auth) URL() string {
	protocol := a.Protocol
	if protocol == "" {
		protocol = DefaultProtocol
	}
	return protocol + "://" + net.JoinHostPort(a.Host, a.port())
}

func (a *Auth) port() string {
	if a.Port == 0 {
		return strconv.Itoa(DefaultPort)
	}
	return strconv.Itoa(a.Port)
}

// Client returns the HTTP client requests should go through.
func (a *Auth) Client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return http.DefaultClient
}

// Apply adds basic credentials to req when the server requires them.
func (a *Auth) Apply(req *http.Request) {
	if a.RequireAuth {
		req.SetBasicAuth(a.Username, a.Password)
	}
}

// Credentials returns the values substituted into run commands.
func (a *Auth) Credentials() options.Credentials {
	return options.Credentials{
		Server:   a.Host,
		Port:     a.port(),
		Username: a.Username,
		Password: a.Password,
	}
}

// Verify issues a GET against the server root. Anything other than 200 is an
// *hpccerr.AuthError.
func (a *Auth) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL(), nil)
	if err != nil {
		return &hpccerr.AuthError{Err: err}
	}
	a.Apply(req)

	resp, err := a.Client().Do(req)
	if err != nil {
		return &hpccerr.AuthError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &hpccerr.AuthError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (a *Auth) String() string {
	return fmt.Sprintf("%s (user %q)", a.URL(), a.Username)
}
