package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Parse("SN_CFG_SERVER", []string{"--address", "10.0.0.1", "--port", "50100", "0000:01:00.0"}, "")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", cfg.Address)
	assert.EqualValues(t, 50100, cfg.Port)
	assert.Equal(t, []string{"0000:01:00.0"}, cfg.BusIDs)
}

func TestParseEnvOverridesDefaultWhenFlagUnset(t *testing.T) {
	t.Setenv("SN_CFG_SERVER_PORT", "50200")
	cfg, err := Parse("SN_CFG_SERVER", nil, "")
	require.NoError(t, err)
	assert.EqualValues(t, 50200, cfg.Port)
}

func TestFlagBeatsEnv(t *testing.T) {
	t.Setenv("SN_CFG_SERVER_PORT", "50200")
	cfg, err := Parse("SN_CFG_SERVER", []string{"--port", "50300"}, "")
	require.NoError(t, err)
	assert.EqualValues(t, 50300, cfg.Port, "flag beats env")
}

func TestConfigFileFillsUnsetTLSAndTokens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	body := `{"server":{"tls":{"cert_chain":"/etc/chain.pem","key":"/etc/key.pem"},"auth":{"tokens":["abc"]}}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Parse("SN_CFG_SERVER", []string{"--config-file", path}, "")
	require.NoError(t, err)
	assert.Equal(t, "/etc/chain.pem", cfg.TLS.CertChainFile)
	assert.Equal(t, "/etc/key.pem", cfg.TLS.KeyFile)
	assert.Equal(t, []string{"abc"}, cfg.Auth.Tokens)
}

func TestNoConfigFileSkipsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":{"auth":{"tokens":["abc"]}}}`), 0o600))

	cfg, err := Parse("SN_CFG_SERVER", []string{"--config-file", path, "--no-config-file"}, "")
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.Tokens, "tokens should stay empty with --no-config-file")
}
