package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWithoutInit(t *testing.T) {
	cfg := Get()
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 20, cfg.Reconciler.MatchWindow)
	assert.Equal(t, 3, cfg.Reconciler.DedupTail)
}

func TestInitFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
reconciler:
  match_window: 50
`), 0644))

	require.NoError(t, Init(path))

	cfg := Get()
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.Reconciler.MatchWindow)
	// Unset keys keep their defaults.
	assert.Equal(t, 3, cfg.Reconciler.DedupTail)
}

func TestInitMissingExplicitFile(t *testing.T) {
	err := Init(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
