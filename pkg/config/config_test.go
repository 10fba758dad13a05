package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.galaxydigital.com/api", cfg.APIBaseURL)
	assert.Len(t, cfg.Resources, 3)
	assert.Equal(t, []int{800197}, cfg.SynthesizeNeedIDs)
	assert.Equal(t, 60, cfg.SyncIntervalMinutes)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api_base_url: https://example.org/api
resources:
  - name: needs
    since_field: since_updated
synthesize_need_ids: [1, 2]
fresh_shift_data: true
sync_interval_minutes: 15
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/api", cfg.APIBaseURL)
	require.Len(t, cfg.Resources, 1)
	assert.Equal(t, "needs", cfg.Resources[0].Name)
	assert.Equal(t, []int{1, 2}, cfg.SynthesizeNeedIDs)
	assert.True(t, cfg.FreshShiftData)
	assert.Equal(t, 15, cfg.SyncIntervalMinutes)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resources: {not a list"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
