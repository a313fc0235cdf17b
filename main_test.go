package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blofeldctl/internal/config"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := config.Default()
	cfg.MIDI.PortHint = "Blofeld USB"
	cfg.Timing.DumpPacing = 200 * time.Millisecond

	require.NoError(t, configCommand(cfg, []string{"init", path}))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Blofeld USB", loaded.MIDI.PortHint)
	assert.Equal(t, 200*time.Millisecond, loaded.Timing.DumpPacing)

	assert.Error(t, configCommand(cfg, []string{"init", path}), "existing file is kept")
	assert.Error(t, configCommand(cfg, nil))
}
