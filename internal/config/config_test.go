package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.1, cfg.Zoom.Min)
	assert.Equal(t, 20.0, cfg.Zoom.Max)
	assert.Contains(t, cfg.Paths.Extensions, ".tiff")
}

func TestLoadYAMLAndTOML(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("zoom:\n  min: 0.5\n  max: 8\n  step: 1.5\nexport:\n  fps: 10\n"), 0o644))

	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Zoom.Min)
	assert.Equal(t, 8.0, cfg.Zoom.Max)
	assert.Equal(t, 10.0, cfg.Export.FPS)
	// untouched sections keep their defaults
	assert.Equal(t, 800, cfg.Canvas.Width)

	tomlPath := filepath.Join(dir, "c.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[canvas]\nwidth = 1024\nheight = 768\n"), 0o644))

	cfg, err = Load(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Canvas.Width)
	assert.Equal(t, 768, cfg.Canvas.Height)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SEQCROP_ZOOM_MAX", "4")
	t.Setenv("SEQCROP_PATHS_EXTENSIONS", "PNG,.tif")

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("zoom:\n  max: 8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4.0, cfg.Zoom.Max)
	assert.Equal(t, []string{".png", ".tif"}, cfg.Paths.Extensions)
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "c.ini", "x=1"},
		{"bad zoom", "z.yaml", "zoom:\n  min: 2\n  max: 1\n"},
		{"bad step", "s.yaml", "zoom:\n  step: 1\n"},
		{"bad canvas", "w.yaml", "canvas:\n  width: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultFolders(t *testing.T) {
	in, out := Default().DefaultFolders("/data")
	assert.Equal(t, filepath.Join("/data", "import"), in)
	assert.Equal(t, filepath.Join("/data", "export"), out)
}
