// config_test.go - Tests for layered configuration loading.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every MCP_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TRANSPORT", "PORT", "HOST", "LOG_LEVEL", "LOG_FORMAT", "SHUTDOWN_TIMEOUT", "CONFIG"} {
		t.Setenv(EnvPrefix+key, "")
		require.NoError(t, os.Unsetenv(EnvPrefix+key))
	}
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("transport", "stdio", "")
	fs.Int("port", 3000, "")
	fs.String("host", "127.0.0.1", "")
	fs.Duration("shutdown-timeout", 5*time.Second, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "127.0.0.1:3000", cfg.Addr())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("MCP_TRANSPORT", "HTTP")
	t.Setenv("MCP_PORT", "8080")
	t.Setenv("MCP_LOG_LEVEL", "debug")
	t.Setenv("MCP_SHUTDOWN_TIMEOUT", "250ms")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.ShutdownTimeout)
}

func TestLoad_FileThenEnvThenFlags(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "crypto-signal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: http\nport: 4000\nhost: 0.0.0.0\nlog-format: text\n"), 0o600))

	t.Setenv("MCP_PORT", "5000")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--host", "localhost"}))

	cfg, err := Load(Options{File: path, Flags: fs})
	require.NoError(t, err)
	assert.Equal(t, TransportHTTP, cfg.Transport) // file
	assert.Equal(t, 5000, cfg.Port)               // env beats file
	assert.Equal(t, "localhost", cfg.Host)        // flag beats file
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_UnchangedFlagsDoNotOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MCP_TRANSPORT", "http")

	fs := testFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(Options{Flags: fs})
	require.NoError(t, err)
	assert.Equal(t, TransportHTTP, cfg.Transport)
}

func TestLoad_JSONFileFromEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"transport":"http","port":9000}`), 0o600))
	t.Setenv("MCP_CONFIG", path)

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_UnknownTransportFails(t *testing.T) {
	clearEnv(t)
	t.Setenv("MCP_TRANSPORT", "carrier-pigeon")

	_, err := Load(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown transport "carrier-pigeon"`)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Transport = "smtp"
	cfg.Port = 70000
	cfg.LogLevel = "chatty"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
	assert.Contains(t, err.Error(), "port 70000")
	assert.Contains(t, err.Error(), "chatty")
}

func TestConfig_Logger(t *testing.T) {
	t.Parallel()
	assert.NotNil(t, Default().Logger())
}
