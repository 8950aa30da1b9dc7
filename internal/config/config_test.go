package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	return dir
}

func TestParseArgs_Defaults(t *testing.T) {
	chdirTemp(t)

	opts, err := ParseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", opts.Port)
	assert.Equal(t, DefaultAPIBaseURL, opts.APIBaseURL)
	assert.Equal(t, StorageMemory, opts.Storage)
	assert.Equal(t, 7*24*time.Hour, opts.Retention)
	assert.False(t, opts.TLSEnabled())
}

func TestParseArgs_FileThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	cfg := filepath.Join(dir, "conf.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{
		"server_address": ":9000",
		"api_base_url": "http://file.example/api",
		"storage": "sqlite",
		"database_dsn": "todo.db"
	}`), 0600))

	t.Setenv("API_BASE_URL", "http://env.example/api")

	opts, err := ParseArgs([]string{"-c", cfg})
	require.NoError(t, err)
	assert.Equal(t, ":9000", opts.Port)
	assert.Equal(t, "http://env.example/api", opts.APIBaseURL)
	assert.Equal(t, StorageSQLite, opts.Storage)
	assert.Equal(t, "todo.db", opts.DatabaseDSN)
}

func TestParseArgs_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_ADDRESS=:7070\n"), 0600))
	// t.Setenv restores the original value after the test; unset it so
	// godotenv is allowed to fill it in.
	t.Setenv("SERVER_ADDRESS", "")
	require.NoError(t, os.Unsetenv("SERVER_ADDRESS"))

	opts, err := ParseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, ":7070", opts.Port)
}

func TestParseArgs_Invalid(t *testing.T) {
	chdirTemp(t)

	cases := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "unknown storage", args: []string{"-storage", "redis"}},
		{name: "postgres without dsn", args: []string{"-storage", "postgres"}},
		{name: "half tls", args: []string{"-tls-cert", "a.crt"}},
		{name: "bad cookie flag", env: map[string]string{"COOKIE_SECURE": "maybe"}},
		{name: "unknown flag", args: []string{"-nope"}},
		{name: "half api client cert", args: []string{"-api-key", "client.key"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := ParseArgs(tc.args)
			assert.Error(t, err)
		})
	}
}

func TestParseArgs_BrokenConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	cfg := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(cfg, []byte("{"), 0600))

	_, err := ParseArgs([]string{"-config", cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error while parsing config file")
}

func TestParseArgs_APITLSAndDevTLS(t *testing.T) {
	chdirTemp(t)
	t.Setenv("API_CA_FILE", "ca.pem")

	opts, err := ParseArgs([]string{"-dev-tls", "-cert-dir", "tmp/certs", "-api-cert", "c.crt", "-api-key", "c.key"})
	require.NoError(t, err)
	assert.True(t, opts.DevTLS)
	assert.Equal(t, "tmp/certs", opts.CertDir)
	assert.Equal(t, "ca.pem", opts.APICAFile)
	assert.Equal(t, "c.crt", opts.APICertFile)
	assert.Equal(t, "c.key", opts.APIKeyFile)
}
