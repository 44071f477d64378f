package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8010, cfg.Server.Port)
	assert.Equal(t, "https", cfg.Server.Protocol)
	assert.True(t, cfg.Server.RequireAuth)
	assert.Equal(t, []string{"thor"}, cfg.Clusters)
	assert.Equal(t, ".", cfg.WorkDir)
	assert.Equal(t, 1200*time.Second, cfg.Timeout)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hpcc.yaml")
	content := `
server:
  host: university.hpccsystems.io
  port: 18010
  protocol: http
auth:
  username: testuser
  password: secret
clusters:
  - thor
  - hthor
work_dir: /tmp/ecl
timeout: 30s
debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "university.hpccsystems.io", cfg.Server.Host)
	assert.Equal(t, 18010, cfg.Server.Port)
	assert.Equal(t, "http", cfg.Server.Protocol)
	assert.Equal(t, "testuser", cfg.Auth.Username)
	assert.Equal(t, "secret", cfg.Auth.Password)
	assert.Equal(t, []string{"thor", "hthor"}, cfg.Clusters)
	assert.Equal(t, "/tmp/ecl", cfg.WorkDir)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GOHPCC_SERVER_HOST", "play.hpccsystems.com")
	t.Setenv("GOHPCC_AUTH_USERNAME", "envuser")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "play.hpccsystems.com", cfg.Server.Host)
	assert.Equal(t, "envuser", cfg.Auth.Username)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Server:   ServerConfig{Host: "localhost", Port: 8010},
		Clusters: []string{"thor"},
	}
	assert.NoError(t, valid.Validate())

	noHost := valid
	noHost.Server.Host = " "
	assert.Error(t, noHost.Validate())

	badPort := valid
	badPort.Server.Port = 0
	assert.Error(t, badPort.Validate())

	noClusters := valid
	noClusters.Clusters = nil
	assert.Error(t, noClusters.Validate())
}

func TestConfig_Redacted(t *testing.T) {
	cfg := Config{Auth: AuthConfig{Username: "u", Password: "secret"}, Clusters: []string{"thor"}}

	redacted := cfg.Redacted()
	assert.Equal(t, "******", redacted.Auth.Password)
	assert.Equal(t, "secret", cfg.Auth.Password)

	redacted.Clusters[0] = "roxie"
	assert.Equal(t, "thor", cfg.Clusters[0])
}
