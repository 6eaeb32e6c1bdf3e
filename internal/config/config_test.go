package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Minimal(t *testing.T) {
	path := writeConfig(t, `
interface: wlan0
node_host: collector.local
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "wlan0", cfg.Interface)
	assert.Equal(t, "collector.local", cfg.NodeHost)
	assert.Equal(t, 5590, cfg.NodePort)
	assert.Equal(t, "tshark", cfg.TsharkPath)
	assert.Equal(t, 90.0, cfg.MemoryPercentThreshold)
}

func TestLoad_InterfaceFlagWins(t *testing.T) {
	path := writeConfig(t, `
interface: wlan0
node_host: node
`)
	cfg, err := Load(path, "wlan1mon")
	require.NoError(t, err)
	assert.Equal(t, "wlan1mon", cfg.Interface)
}

func TestLoad_LegacyChannelsMigration(t *testing.T) {
	path := writeConfig(t, `
interface: wlan0
node_host: node
channels: [1, 6, 11]
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 6, 11}, cfg.Channels24)
	assert.Nil(t, cfg.Channels)
}

func TestLoad_LegacyDoesNotOverrideExplicit(t *testing.T) {
	path := writeConfig(t, `
interface: wlan0
node_host: node
channels: [1]
channels_24ghz: [6, 11]
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, []int{6, 11}, cfg.Channels24)
}

func TestLoad_UnknownKeyFatal(t *testing.T) {
	path := writeConfig(t, `
interface: wlan0
node_host: node
not_a_key: true
`)
	_, err := Load(path, "")
	assert.Error(t, err)
}

func TestLoad_MissingNodeHost(t *testing.T) {
	path := writeConfig(t, "interface: wlan0\n")
	_, err := Load(path, "")
	assert.Error(t, err)
}

func TestLoad_TraceSampleRatio(t *testing.T) {
	path := writeConfig(t, `
interface: wlan0
node_host: node
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.TraceSampleRatio)

	bad := writeConfig(t, `
interface: wlan0
node_host: node
trace_sample_ratio: 1.5
`)
	_, err = Load(bad, "")
	assert.Error(t, err)
}

func TestMergedChannels(t *testing.T) {
	cfg := &Config{
		Channels24: []int{1, 6, 11, 6},
		Channels5:  []int{36, 40, 1},
		Channels6:  []int{5, 36},
	}
	assert.Equal(t, []int{1, 6, 11, 36, 40, 5}, cfg.MergedChannels())
}

func TestEnsureTapUUID_Generates(t *testing.T) {
	fallback := filepath.Join(t.TempDir(), "state", "tap_uuid")
	cfg := &Config{}

	require.NoError(t, cfg.EnsureTapUUID(fallback))
	_, err := uuid.Parse(cfg.TapUUID)
	require.NoError(t, err)

	info, err := os.Stat(fallback)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A second instance with no configured identity must reuse the file.
	again := &Config{}
	require.NoError(t, again.EnsureTapUUID(fallback))
	assert.Equal(t, cfg.TapUUID, again.TapUUID)
}

func TestEnsureTapUUID_ConfiguredWins(t *testing.T) {
	fallback := filepath.Join(t.TempDir(), "tap_uuid")
	id := uuid.New().String()
	cfg := &Config{TapUUID: id}

	require.NoError(t, cfg.EnsureTapUUID(fallback))
	assert.Equal(t, id, cfg.TapUUID)
	_, err := os.Stat(fallback)
	assert.True(t, os.IsNotExist(err))
}
