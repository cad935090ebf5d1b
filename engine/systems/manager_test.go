package systems

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemManagerLifecycle(t *testing.T) {
	dir := t.TempDir()
	f := &textureFixture{dir: dir}
	f.writePNG(t, "sky.png", 12, 2, color.NRGBA{B: 255, A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sky.amt"), []byte("name = sky\nenvironment_map = sky.png\n"), 0o644))

	cfg := core.DefaultConfig()
	cfg.Assets.BasePath = dir
	cfg.Textures.Workers = 2
	cfg.Textures.MaxTextureCount = 64
	cfg.Materials.MaxMaterialCount = 3
	backend := renderer.NewMemoryBackend()

	sm, err := NewSystemManager(cfg, backend)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), sm.TextureSystem().Config.MaxTextureCount)
	assert.Equal(t, uint32(3), sm.MaterialSystem().Config.MaxMaterialCount)
	require.NoError(t, sm.Initialize())

	m, err := sm.MaterialSystem().Acquire(context.Background(), "sky.amt")
	require.NoError(t, err)
	sm.TextureSystem().Wait()

	view := m.View(metadata.MaterialSlotEnvironment)
	require.NotNil(t, view.Texture)
	assert.Equal(t, "sky.png", view.Texture.Name)
	assert.Equal(t, metadata.TextureTypeCube, view.Dimension)
	assert.Equal(t, uint32(6), view.ArrayLayerCount)
	assert.Equal(t, uint32(2), view.Texture.Width)

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, 0, backend.Stats().Resident)
}

func TestSystemManagerRejectsBadConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Textures.Workers = 0
	_, err := NewSystemManager(cfg, renderer.NewMemoryBackend())
	assert.Error(t, err)
}
