package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	c := Default()
	c.Driver = "spi"
	c.SPI.Dev = "/dev/spidev0.0"
	c.Power.LimitAmps = 12
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "spi", got.Driver)
	assert.Equal(t, "/dev/spidev0.0", got.SPI.Dev)
	assert.InDelta(t, 12.0, got.Power.LimitAmps, 1e-9)
	assert.True(t, got.UDP.Enabled)
}

func TestMergePartialFile(t *testing.T) {
	// A file containing only one key must not wipe the rest of the
	// flag-derived config.
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("driver: spi\n"), 0o644))

	base := Default()
	base.LayoutPath = "panels.json"
	base.Brightness = 200

	over, err := Load(path)
	require.NoError(t, err)
	got := Merge(base, over)

	assert.Equal(t, "spi", got.Driver)
	assert.Equal(t, "panels.json", got.LayoutPath)
	assert.Equal(t, 200, got.Brightness)
	assert.Equal(t, Default().QueueSize, got.QueueSize)
	assert.Equal(t, Default().UDP, got.UDP)
}

func TestMergeSectionsApplyWhenSet(t *testing.T) {
	base := Default()
	over := &Config{
		UDP:   UDPCfg{Enabled: false, Port: 7000},
		Pipe:  PipeCfg{Enabled: true, Path: "/tmp/frames.pipe"},
		Power: PowerCfg{LimitAmps: 4, Enabled: false},
	}
	got := Merge(base, over)

	assert.Equal(t, UDPCfg{Enabled: false, Port: 7000}, got.UDP)
	assert.Equal(t, PipeCfg{Enabled: true, Path: "/tmp/frames.pipe"}, got.Pipe)
	assert.Equal(t, PowerCfg{LimitAmps: 4, Enabled: false}, got.Power)
	// Untouched sections and scalars come from base.
	assert.Equal(t, base.Driver, got.Driver)
	assert.Equal(t, base.HTTPAddr, got.HTTPAddr)
}

func TestSaveBacksUpExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, Save(path, Default()))
	// First save of a fresh file makes no backup.
	_, err := os.Stat(filepath.Join(dir, "backup"))
	assert.True(t, os.IsNotExist(err))

	c := Default()
	c.Brightness = 42
	require.NoError(t, Save(path, c))

	entries, err := os.ReadDir(filepath.Join(dir, "backup"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "config_")
}

func TestBackupPruning(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backup")
	require.NoError(t, os.MkdirAll(backupDir, 0o755))
	for i := 0; i < maxBackups+3; i++ {
		name := filepath.Join(backupDir, fmt.Sprintf("config_20260101_%06d.yaml", i))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	require.NoError(t, pruneBackups(backupDir))
	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Len(t, entries, maxBackups)
}
