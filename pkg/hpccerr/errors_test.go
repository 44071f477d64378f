package hpccerr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigError_Message(t *testing.T) {
	err := NewConfigError("run", "--user", "-R")
	assert.Equal(t, "invalid run options not supported: [--user, -R]", err.Error())
	assert.Equal(t, []string{"--user", "-R"}, err.Keys)
}

func TestIsConfigError(t *testing.T) {
	err := fmt.Errorf("resolve: %w", NewConfigError("compile", "-u"))
	assert.True(t, IsConfigError(err))
	assert.False(t, IsConfigError(errors.New("plain")))
	assert.False(t, IsConfigError(nil))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("compile", nil))

	err := Wrap("write file", fs.ErrPermission)
	require.Error(t, err)
	assert.Equal(t, "could not write file: permission denied", err.Error())
	assert.ErrorIs(t, err, fs.ErrPermission)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "write file", opErr.Op)
}

func TestAuthError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *AuthError
		want string
	}{
		{name: "status", err: &AuthError{StatusCode: 401}, want: "authentication failed: status 401"},
		{name: "cause", err: &AuthError{Err: errors.New("dial tcp: refused")}, want: "authentication failed: dial tcp: refused"},
		{name: "empty", err: &AuthError{}, want: "authentication failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}
