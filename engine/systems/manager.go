package systems

import (
	"github.com/spaghettifunk/texbind/engine/assets"
	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer"
)

type SystemManager struct {
	assetManager   *assets.AssetManager
	jobSystem      *JobSystem
	textureSystem  *TextureSystem
	materialSystem *MaterialSystem
}

func NewSystemManager(config *core.Config, backend renderer.TextureBackend) (*SystemManager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(config.Log.Level); err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager(config.Assets)
	if err != nil {
		return nil, err
	}
	js, err := NewJobSystem(config.Textures.Workers, config.Textures.QueueSize)
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: config.Textures.MaxTextureCount,
	}, js, am, backend)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MaxMaterialCount: config.Materials.MaxMaterialCount,
	}, ts, am)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		assetManager:   am,
		jobSystem:      js,
		textureSystem:  ts,
		materialSystem: ms,
	}, nil
}

func (sm *SystemManager) Initialize() error {
	if err := sm.assetManager.Initialize(); err != nil {
		return err
	}
	if err := sm.textureSystem.Initialize(); err != nil {
		return err
	}
	core.LogInfo("texture systems initialized")
	return nil
}

func (sm *SystemManager) AssetManager() *assets.AssetManager {
	return sm.assetManager
}

func (sm *SystemManager) TextureSystem() *TextureSystem {
	return sm.textureSystem
}

func (sm *SystemManager) MaterialSystem() *MaterialSystem {
	return sm.materialSystem
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.materialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.textureSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.assetManager.Shutdown(); err != nil {
		return err
	}
	return nil
}
