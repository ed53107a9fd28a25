package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "nk.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_FlagsOnly(t *testing.T) {
	cfg, err := Load([]string{"-token-key", "k", "-insecure", "-session-lifetime", "48h", "-refresh-window", "12h"})
	require.NoError(t, err)
	require.Equal(t, "k", cfg.TokenKey)
	require.True(t, cfg.Insecure)
	require.Equal(t, 48*time.Hour, cfg.SessionLifetime.Duration)
	require.Equal(t, 12*time.Hour, cfg.RefreshWindow.Duration)
	require.Equal(t, ":8443", cfg.Addr)
	require.Equal(t, time.Hour, cfg.SweepInterval.Duration)
}

func TestLoad_FileThenFlags(t *testing.T) {
	p := writeTOML(t, `
addr = ":9000"
token_key = "from-file"
registry = "redis"
redis_addr = "cache:6379"
sweep_interval = "0s"
insecure = true
login_max_fails = 3
peer_rps = 2.5
`)
	cfg, err := Load([]string{"-config", p, "-addr", ":9100"})
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Addr, "flag wins")
	require.Equal(t, "from-file", cfg.TokenKey)
	require.Equal(t, RegistryRedis, cfg.Registry)
	require.Equal(t, "cache:6379", cfg.RedisAddr)
	require.Zero(t, cfg.SweepInterval.Duration)
	require.Equal(t, 3, cfg.LoginMaxFails)
	require.Equal(t, 2.5, cfg.PeerRPS)
	require.Equal(t, 7*24*time.Hour, cfg.SessionLifetime.Duration, "default kept")
}

func TestLoad_TokenKeyFromEnv(t *testing.T) {
	t.Setenv(TokenKeyEnv, "env-key")
	cfg, err := Load([]string{"-insecure"})
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.TokenKey)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(TokenKeyEnv, "")

	_, err := Load([]string{"-insecure"})
	require.ErrorContains(t, err, "token_key is required")

	_, err = Load([]string{"-token-key", "k", "-insecure", "-registry", "mongo"})
	require.ErrorContains(t, err, "registry")

	_, err = Load([]string{"-token-key", "k", "-insecure", "-session-lifetime", "1h", "-refresh-window", "2h"})
	require.ErrorContains(t, err, "refresh_window")

	_, err = Load([]string{"-token-key", "k", "-tls-cert", ""})
	require.ErrorContains(t, err, "tls_cert")

	_, err = Load([]string{"-config", writeTOML(t, `addr = [`)})
	require.Error(t, err)

	_, err = Load([]string{"-config", filepath.Join(t.TempDir(), "missing.toml")})
	require.Error(t, err)

	_, err = Load([]string{"-session-lifetime", "soon"})
	require.Error(t, err)
}
