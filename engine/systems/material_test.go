package systems

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/math"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallAMT = `name = wall
diffuse_map = brick.png
diffuse_scale = 2 2
normal_map = brick.png
lightmap_map = atlas.png
lightmap_offset_scale = 0.25 2
`

func newMaterialSystem(t *testing.T, f *textureFixture, max uint32) *MaterialSystem {
	t.Helper()
	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: max}, f.sys, f.assets)
	require.NoError(t, err)
	t.Cleanup(func() { ms.Shutdown() })
	return ms
}

func TestMaterialSystemAcquire(t *testing.T) {
	f := newTextureFixture(t, false, 16)
	f.writePNG(t, "brick.png", 4, 4, color.NRGBA{R: 180, G: 60, B: 40, A: 255})
	f.writePNG(t, "atlas.png", 2, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "wall.amt"), []byte(wallAMT), 0o644))
	ms := newMaterialSystem(t, f, 4)

	m, err := ms.Acquire(context.Background(), "wall.amt")
	require.NoError(t, err)
	assert.Equal(t, "wall", m.Name)
	f.sys.Wait()

	diffuse := m.Map(metadata.MaterialSlotDiffuse)
	require.True(t, diffuse.IsDefined())
	assert.Equal(t, math.NewVec2(2, 2), diffuse.TextureTransform().Scale)
	assert.Equal(t, metadata.TextureFormatRGBA8UnormSRGB, m.View(metadata.MaterialSlotDiffuse).Format)

	// Same url, different usage: the normal map is decoded separately.
	normal := m.Map(metadata.MaterialSlotNormal)
	require.True(t, normal.IsDefined())
	assert.NotSame(t, diffuse.TextureSource(), normal.TextureSource())
	assert.Equal(t, metadata.TextureFormatRGBA8Unorm, m.View(metadata.MaterialSlotNormal).Format)

	lightmap := m.Map(metadata.MaterialSlotLightmap)
	assert.Equal(t, math.NewVec2(0.25, 2), lightmap.LightmapOffsetScale())
	assert.Equal(t, math.NewVec2(0, 1), diffuse.LightmapOffsetScale())

	// Unconfigured slots fall back to the defaults for their usage.
	assert.False(t, m.Map(metadata.MaterialSlotSpecular).IsDefined())
	assert.Same(t, f.sys.DefaultTexture.DefaultSpecularTexture, m.View(metadata.MaterialSlotSpecular).Texture)
	env := m.View(metadata.MaterialSlotEnvironment)
	assert.Same(t, f.sys.DefaultTexture.DefaultCubeTexture, env.Texture)
	assert.Equal(t, uint32(metadata.CubeFaceCount), env.ArrayLayerCount)

	again, err := ms.Acquire(context.Background(), "wall.amt")
	require.NoError(t, err)
	assert.Same(t, m, again)
}

func TestMaterialSystemSharesTextures(t *testing.T) {
	f := newTextureFixture(t, false, 16)
	f.writePNG(t, "brick.png", 2, 2, color.NRGBA{R: 1, A: 255})
	ms := newMaterialSystem(t, f, 4)

	cfgA := metadata.NewMaterialConfig("a")
	cfgA.Map(metadata.MaterialSlotDiffuse).URL = "brick.png"
	cfgB := metadata.NewMaterialConfig("b")
	cfgB.Map(metadata.MaterialSlotDiffuse).URL = "brick.png"
	cfgB.Map(metadata.MaterialSlotDiffuse).Transform = math.TransformFromOffsetScale(math.NewVec2(0.5, 0), math.NewVec2One())

	a, err := ms.AcquireFromConfig(cfgA)
	require.NoError(t, err)
	b, err := ms.AcquireFromConfig(cfgB)
	require.NoError(t, err)
	f.sys.Wait()

	usage := metadata.NewTextureUsage()
	assert.Same(t, a.Map(metadata.MaterialSlotDiffuse).TextureSource(), b.Map(metadata.MaterialSlotDiffuse).TextureSource())
	assert.Equal(t, uint64(2), f.sys.ReferenceCount("brick.png", usage))
	// Per-map settings stay per map.
	assert.True(t, a.Map(metadata.MaterialSlotDiffuse).TextureTransform().IsIdentity())
	assert.False(t, b.Map(metadata.MaterialSlotDiffuse).TextureTransform().IsIdentity())

	ms.Release("a")
	assert.Equal(t, uint64(1), f.sys.ReferenceCount("brick.png", usage))
	assert.False(t, a.Map(metadata.MaterialSlotDiffuse).IsDefined())
	assert.True(t, b.Map(metadata.MaterialSlotDiffuse).IsDefined())

	ms.Release("b")
	_, ok := f.sys.Source("brick.png", usage)
	assert.False(t, ok)
}

func TestMaterialSystemErrors(t *testing.T) {
	f := newTextureFixture(t, false, 1)
	ms := newMaterialSystem(t, f, 1)

	_, err := ms.Acquire(context.Background(), "missing.amt")
	assert.ErrorIs(t, err, core.ErrAssetNotFound)

	_, err = ms.AcquireFromConfig(&metadata.MaterialConfig{})
	assert.Error(t, err)

	// The texture registry holds a single entry.
	cfg := metadata.NewMaterialConfig("greedy")
	cfg.Map(metadata.MaterialSlotDiffuse).URL = "a.png"
	cfg.Map(metadata.MaterialSlotSpecular).URL = "b.png"
	_, err = ms.AcquireFromConfig(cfg)
	assert.ErrorIs(t, err, core.ErrRegistryFull)
	f.sys.Wait()
	assert.Equal(t, 0, f.sys.Count())

	_, err = ms.AcquireFromConfig(metadata.NewMaterialConfig("one"))
	require.NoError(t, err)
	_, err = ms.AcquireFromConfig(metadata.NewMaterialConfig("two"))
	assert.ErrorIs(t, err, core.ErrRegistryFull)

	ms.Release(metadata.DefaultMaterialName)
	ms.Release("nobody")
	assert.Equal(t, metadata.DefaultMaterialName, ms.GetDefault().Name)
}

func TestMaterialSystemReleaseByNameAfterURLAcquire(t *testing.T) {
	f := newTextureFixture(t, false, 16)
	f.writePNG(t, "brick.png", 2, 2, color.NRGBA{R: 9, A: 255})
	f.writePNG(t, "atlas.png", 2, 2, color.NRGBA{G: 9, A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "wall.amt"), []byte(wallAMT), 0o644))
	ms := newMaterialSystem(t, f, 4)

	m, err := ms.Acquire(context.Background(), "wall.amt")
	require.NoError(t, err)
	// A config acquire under the same name shares the material.
	same, err := ms.AcquireFromConfig(metadata.NewMaterialConfig("wall"))
	require.NoError(t, err)
	assert.Same(t, m, same)
	f.sys.Wait()

	usage := metadata.NewTextureUsage()
	assert.Equal(t, uint64(1), f.sys.ReferenceCount("brick.png", usage))

	ms.Release(m.Name)
	assert.Equal(t, uint64(1), f.sys.ReferenceCount("brick.png", usage))
	ms.Release(m.Name)

	assert.Equal(t, uint64(0), f.sys.ReferenceCount("brick.png", usage))
	_, ok := f.sys.Source("brick.png", usage)
	assert.False(t, ok)
	assert.False(t, m.Map(metadata.MaterialSlotDiffuse).IsDefined())

	// The url is loaded afresh once the material is gone.
	again, err := ms.Acquire(context.Background(), "wall.amt")
	require.NoError(t, err)
	assert.NotSame(t, m, again)
	ms.Release(again.Name)
}
