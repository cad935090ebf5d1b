package systems

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/texbind/engine/assets"
	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/math"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
	"github.com/spaghettifunk/texbind/engine/renderer/texture"
)

type MaterialSystemConfig struct {
	/** @brief The maximum number of loaded materials. */
	MaxMaterialCount uint32
}

/**
 * @brief A material, which represents various properties
 * of a surface in the world such as texture, colour,
 * bumpiness and more.
 */
type Material struct {
	/** @brief The material id. */
	ID uuid.UUID
	/** @brief The material generation. Incremented every time the material is changed. */
	Generation uint32
	/** @brief The material name. */
	Name string
	/** @brief The diffuse colour. */
	DiffuseColour math.Vec4
	/** @brief One texture map per slot. Unconfigured slots hold the zero map. */
	Maps [metadata.MaterialSlotCount]texture.TextureMap

	usages   [metadata.MaterialSlotCount]metadata.TextureUsage
	defaults *metadata.DefaultTexture
}

func (m *Material) Map(slot metadata.MaterialSlot) *texture.TextureMap {
	return &m.Maps[slot]
}

// Usage reports the usage the slot's texture is decoded with.
func (m *Material) Usage(slot metadata.MaterialSlot) metadata.TextureUsage {
	return m.usages[slot]
}

/**
 * @brief The view a renderer binds for slot: the slot's texture once it is
 * resolved, the default texture for the slot's usage otherwise.
 */
func (m *Material) View(slot metadata.MaterialSlot) metadata.TextureView {
	if view := m.Maps[slot].TextureView(); view.IsValid() {
		return view
	}
	if m.defaults == nil {
		return metadata.TextureView{}
	}
	return metadata.NewTextureView(m.defaults.ForUsage(m.usages[slot]))
}

type materialReference struct {
	ReferenceCount uint64
	AutoRelease    bool
	Material       *Material
}

type MaterialSystem struct {
	Config          *MaterialSystemConfig
	DefaultMaterial *Material

	registeredMaterialTable map[string]*materialReference
	// url of a loaded .amt file to the name it is registered under
	materialNames map[string]string
	mutex         sync.Mutex

	textureSystem *TextureSystem
	assetManager  *assets.AssetManager
}

func NewMaterialSystem(config *MaterialSystemConfig, ts *TextureSystem, am *assets.AssetManager) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	ms := &MaterialSystem{
		Config:                  config,
		registeredMaterialTable: make(map[string]*materialReference),
		materialNames:           make(map[string]string),
		textureSystem:           ts,
		assetManager:            am,
	}
	ms.DefaultMaterial = ms.newMaterial(metadata.DefaultMaterialName, math.Vec4{X: 1, Y: 1, Z: 1, W: 1}, 0)
	return ms, nil
}

func (ms *MaterialSystem) Shutdown() error {
	ms.mutex.Lock()
	refs := ms.registeredMaterialTable
	ms.registeredMaterialTable = make(map[string]*materialReference)
	ms.materialNames = make(map[string]string)
	ms.mutex.Unlock()

	for _, ref := range refs {
		ms.destroyMaterial(ref.Material)
	}
	return nil
}

func (ms *MaterialSystem) GetDefault() *Material {
	return ms.DefaultMaterial
}

/**
 * @brief Loads the .amt file at url, or returns the already loaded material
 * with the same url or name and increments its reference count. The material
 * is registered under its name, which is what Release expects.
 */
func (ms *MaterialSystem) Acquire(ctx context.Context, url string) (*Material, error) {
	if m := ms.referenceURL(url); m != nil {
		return m, nil
	}

	res, err := ms.assetManager.LoadAsset(ctx, url, metadata.ResourceTypeMaterial, nil)
	if err != nil {
		return nil, err
	}
	defer ms.assetManager.UnloadAsset(metadata.ResourceTypeMaterial, res)

	cfg, ok := res.Data.(*metadata.MaterialConfig)
	if !ok {
		return nil, fmt.Errorf("failed to type cast resource data of '%s' to *metadata.MaterialConfig", url)
	}
	if m := ms.reference(cfg.Name); m != nil {
		ms.rememberURL(url, cfg.Name)
		return m, nil
	}
	m, err := ms.acquire(cfg.Name, cfg)
	if err != nil {
		return nil, err
	}
	ms.rememberURL(url, cfg.Name)
	return m, nil
}

// AcquireFromConfig registers cfg under cfg.Name.
func (ms *MaterialSystem) AcquireFromConfig(cfg *metadata.MaterialConfig) (*Material, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("material config has no name")
	}
	if m := ms.reference(cfg.Name); m != nil {
		return m, nil
	}
	return ms.acquire(cfg.Name, cfg)
}

/**
 * @brief Drops one reference. An auto-released material with no references
 * left releases its textures.
 */
func (ms *MaterialSystem) Release(name string) {
	// Ignore release requests for the default material.
	if name == metadata.DefaultMaterialName {
		return
	}

	ms.mutex.Lock()
	ref, ok := ms.registeredMaterialTable[name]
	if !ok || ref.ReferenceCount == 0 {
		ms.mutex.Unlock()
		core.LogWarn("Tried to release non-existent material: '%s'", name)
		return
	}
	ref.ReferenceCount--
	unload := ref.ReferenceCount == 0 && ref.AutoRelease
	if unload {
		delete(ms.registeredMaterialTable, name)
		for url, n := range ms.materialNames {
			if n == name {
				delete(ms.materialNames, url)
			}
		}
	}
	ms.mutex.Unlock()

	if unload {
		ms.destroyMaterial(ref.Material)
		core.LogDebug("Released material '%s'. Material unloaded because reference count=0 and AutoRelease=true.", name)
	}
}

func (ms *MaterialSystem) reference(key string) *Material {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	if ref, ok := ms.registeredMaterialTable[key]; ok {
		ref.ReferenceCount++
		return ref.Material
	}
	return nil
}

func (ms *MaterialSystem) referenceURL(url string) *Material {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	name, ok := ms.materialNames[url]
	if !ok {
		return nil
	}
	if ref, ok := ms.registeredMaterialTable[name]; ok {
		ref.ReferenceCount++
		return ref.Material
	}
	delete(ms.materialNames, url)
	return nil
}

func (ms *MaterialSystem) rememberURL(url, name string) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	if _, ok := ms.registeredMaterialTable[name]; ok {
		ms.materialNames[url] = name
	}
}

func (ms *MaterialSystem) acquire(key string, cfg *metadata.MaterialConfig) (*Material, error) {
	ms.mutex.Lock()
	full := uint32(len(ms.registeredMaterialTable)) >= ms.Config.MaxMaterialCount
	ms.mutex.Unlock()
	if full {
		core.LogError("Material system cannot hold anymore materials. Adjust configuration to allow more.")
		return nil, fmt.Errorf("%w: cannot register material '%s'", core.ErrRegistryFull, key)
	}

	m, err := ms.loadMaterial(cfg)
	if err != nil {
		return nil, err
	}

	ms.mutex.Lock()
	if ref, ok := ms.registeredMaterialTable[key]; ok {
		// Lost a race with another acquire of the same material.
		ref.ReferenceCount++
		ms.mutex.Unlock()
		ms.destroyMaterial(m)
		return ref.Material, nil
	}
	ms.registeredMaterialTable[key] = &materialReference{
		ReferenceCount: 1,
		AutoRelease:    cfg.AutoRelease,
		Material:       m,
	}
	ms.mutex.Unlock()

	core.LogDebug("Material '%s' loaded.", cfg.Name)
	return m, nil
}

func (ms *MaterialSystem) newMaterial(name string, diffuse math.Vec4, environmentUsage int) *Material {
	m := &Material{
		ID:            uuid.New(),
		Name:          name,
		DiffuseColour: diffuse,
		defaults:      ms.textureSystem.DefaultTexture,
	}
	for slot := metadata.MaterialSlot(0); slot < metadata.MaterialSlotCount; slot++ {
		m.usages[slot] = slot.Usage(environmentUsage)
	}
	return m
}

func (ms *MaterialSystem) loadMaterial(cfg *metadata.MaterialConfig) (*Material, error) {
	m := ms.newMaterial(cfg.Name, cfg.DiffuseColour, cfg.EnvironmentUsage)

	for slot := metadata.MaterialSlot(0); slot < metadata.MaterialSlotCount; slot++ {
		mapConfig, ok := cfg.Maps[slot]
		if !ok || mapConfig.URL == "" {
			continue
		}
		src, err := ms.textureSystem.Acquire(mapConfig.URL, m.usages[slot], cfg.AutoRelease)
		if err != nil {
			ms.destroyMaterial(m)
			return nil, fmt.Errorf("material '%s' %s map: %w", cfg.Name, slot, err)
		}

		tm := m.Map(slot)
		tm.SetTextureSource(src)
		tm.SetTextureTransform(mapConfig.Transform)
		if slot == metadata.MaterialSlotLightmap {
			tm.SetLightmapOffsetScale(mapConfig.LightmapOffset, mapConfig.LightmapScale)
		}
	}
	m.Generation++
	return m, nil
}

func (ms *MaterialSystem) destroyMaterial(m *Material) {
	for slot := metadata.MaterialSlot(0); slot < metadata.MaterialSlotCount; slot++ {
		tm := m.Map(slot)
		src := tm.TextureSource()
		if src == nil {
			continue
		}
		// The source url is cleared once the texture system unloads it.
		if url := src.URL(); url != "" {
			if err := ms.textureSystem.Release(url, m.usages[slot]); err != nil {
				core.LogWarn("material '%s': %s", m.Name, err)
			}
		}
		tm.SetTextureSource(nil)
	}
	m.Generation++
}
