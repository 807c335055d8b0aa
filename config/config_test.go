package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "")
	t.Setenv("WALLET_ADDRESS", "")
	t.Setenv("CHAIN_ID", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc:\n  url: http://localhost:8545\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(DefaultChainID), cfg.ChainID)
	require.Equal(t, DefaultMaxHops, cfg.MaxHops)
	require.Equal(t, DefaultMaxPoolsPerHop, cfg.MaxPoolsPerHop)
	require.Equal(t, DefaultWorkerPoolSize, cfg.WorkerPoolSize)
	require.Equal(t, "http://localhost:8545", cfg.RPCURL)
}

func TestLoadMissingRPCURLFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chainId: 43114\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.ErrorAs(t, err, new(*ErrMissingRequired))
}

func TestLoadEnvOverridesPrivateKey(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "0xdeadbeef")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc:\n  url: http://localhost:8545\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0xdeadbeef", cfg.WalletPrivateKey)
}
