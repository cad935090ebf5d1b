package systems

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spaghettifunk/texbind/engine/assets"
	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
	"github.com/spaghettifunk/texbind/engine/renderer/texture"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of texture sources that can be registered at once. */
	MaxTextureCount uint32
}

// textureKey identifies a registered source. The same url decoded for two
// usages yields two textures.
type textureKey struct {
	url   string
	usage metadata.TextureUsage
}

type textureReference struct {
	ReferenceCount uint64
	AutoRelease    bool
	Source         *texture.TextureSource
}

/** @brief Parameters carried by a texture load job. */
type textureLoadParams struct {
	URL        string
	Usage      metadata.TextureUsage
	Source     *texture.TextureSource
	Generation uint64
	Texture    *metadata.Texture
	Clock      *core.Clock
}

type TextureSystem struct {
	Config         *TextureSystemConfig
	DefaultTexture *metadata.DefaultTexture
	// Hashtable for texture lookups.
	registeredTextureTable map[textureKey]*textureReference
	mutex                  sync.Mutex
	// in-flight load jobs, counted by hand since loads start while Wait runs
	pendingCond  *sync.Cond
	pendingCount int
	ctx          context.Context
	cancel       context.CancelFunc
	// sub systems
	jobSystem    *JobSystem
	assetManager *assets.AssetManager
	backend      renderer.TextureBackend
	metrics      *core.LoadMetrics
}

func NewTextureSystem(config *TextureSystemConfig, js *JobSystem, am *assets.AssetManager, backend renderer.TextureBackend) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if js == nil || am == nil || backend == nil {
		return nil, errors.New("func NewTextureSystem - job system, asset manager and backend are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	ts := &TextureSystem{
		Config:                 config,
		registeredTextureTable: make(map[textureKey]*textureReference),
		DefaultTexture:         metadata.NewDefaultTexture(),
		pendingCond:            sync.NewCond(&sync.Mutex{}),
		ctx:                    ctx,
		cancel:                 cancel,
		jobSystem:              js,
		assetManager:           am,
		backend:                backend,
		metrics:                core.NewLoadMetrics(),
	}

	// Create default textures for use in the system.
	ts.DefaultTexture.CreateSkeletonTextures()

	return ts, nil
}

func (ts *TextureSystem) Initialize() error {
	for _, t := range ts.DefaultTexture.All() {
		if err := ts.backend.TextureCreate(t); err != nil {
			return fmt.Errorf("uploading default texture '%s': %w", t.Name, err)
		}
	}
	ts.assetManager.Subscribe(ts.onAssetChanged)
	return nil
}

func (ts *TextureSystem) Shutdown() error {
	ts.cancel()
	ts.Wait()

	ts.mutex.Lock()
	refs := ts.registeredTextureTable
	ts.registeredTextureTable = make(map[textureKey]*textureReference)
	ts.mutex.Unlock()

	// Destroy all loaded textures.
	for _, ref := range refs {
		ref.Source.Reset("", metadata.NewTextureUsage())
	}
	for _, t := range ts.DefaultTexture.All() {
		if err := ts.backend.TextureDestroy(t); err != nil {
			return err
		}
	}
	return nil
}

/**
 * @brief Returns the shared source for url decoded with usage. The first
 * acquire registers the source and kicks off an asynchronous load; later
 * acquires increment its reference count. The returned source is pending
 * until the load completes and stays pending if it fails.
 * @param autoRelease Only honoured by the acquire that creates the entry.
 */
func (ts *TextureSystem) Acquire(url string, usage metadata.TextureUsage, autoRelease bool) (*texture.TextureSource, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: texture acquire needs a url", core.ErrAssetNotFound)
	}
	key := textureKey{url: url, usage: usage}

	ts.mutex.Lock()
	if ref, ok := ts.registeredTextureTable[key]; ok {
		ref.ReferenceCount++
		ts.mutex.Unlock()
		core.LogDebug("Texture '%s' already exists, ref_count increased to %d.", url, ref.ReferenceCount)
		return ref.Source, nil
	}
	if uint32(len(ts.registeredTextureTable)) >= ts.Config.MaxTextureCount {
		ts.mutex.Unlock()
		core.LogError("Texture system cannot hold anymore textures. Adjust configuration to allow more.")
		return nil, fmt.Errorf("%w: cannot register '%s'", core.ErrRegistryFull, url)
	}

	src := texture.NewTextureSourceWithRelease(ts.destroyTexture)
	generation := src.Reset(url, usage)
	ts.registeredTextureTable[key] = &textureReference{
		ReferenceCount: 1,
		AutoRelease:    autoRelease,
		Source:         src,
	}
	ts.mutex.Unlock()

	ts.loadTexture(src, generation)
	return src, nil
}

/**
 * @brief Drops one reference. A source whose count reaches zero with
 * auto-release set is unregistered and its texture destroyed.
 */
func (ts *TextureSystem) Release(url string, usage metadata.TextureUsage) error {
	key := textureKey{url: url, usage: usage}

	ts.mutex.Lock()
	ref, ok := ts.registeredTextureTable[key]
	if !ok {
		ts.mutex.Unlock()
		core.LogWarn("Tried to release non-existent texture: '%s'", url)
		return fmt.Errorf("%w: '%s' is not registered", core.ErrAssetNotFound, url)
	}
	if ref.ReferenceCount == 0 {
		ts.mutex.Unlock()
		// Still count this as a success, but warn about it.
		core.LogWarn("Tried to release a texture where autorelease=false, but references was already 0.")
		return nil
	}
	ref.ReferenceCount--
	unload := ref.ReferenceCount == 0 && ref.AutoRelease
	if unload {
		delete(ts.registeredTextureTable, key)
	}
	ts.mutex.Unlock()

	if unload {
		// Bumps the generation too, so an in-flight load is discarded.
		ref.Source.Reset("", metadata.NewTextureUsage())
		core.LogDebug("Released texture '%s'. Texture unloaded because reference count=0 and AutoRelease=true.", url)
	}
	return nil
}

/**
 * @brief Re-fetches and re-decodes every registered source for url. The
 * current texture keeps being sampled until the new one is ready.
 * @return The number of sources scheduled.
 */
func (ts *TextureSystem) Reload(url string) int {
	sources := ts.sourcesMatching(func(key textureKey) bool { return key.url == url })
	for _, src := range sources {
		ts.loadTexture(src, src.Generation())
	}
	return len(sources)
}

// Source returns the registered source without touching its reference count.
func (ts *TextureSystem) Source(url string, usage metadata.TextureUsage) (*texture.TextureSource, bool) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	ref, ok := ts.registeredTextureTable[textureKey{url: url, usage: usage}]
	if !ok {
		return nil, false
	}
	return ref.Source, true
}

func (ts *TextureSystem) ReferenceCount(url string, usage metadata.TextureUsage) uint64 {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	if ref, ok := ts.registeredTextureTable[textureKey{url: url, usage: usage}]; ok {
		return ref.ReferenceCount
	}
	return 0
}

func (ts *TextureSystem) Count() int {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	return len(ts.registeredTextureTable)
}

func (ts *TextureSystem) Metrics() core.LoadMetricsSnapshot {
	return ts.metrics.Snapshot()
}

// Wait blocks until no load job is in flight.
func (ts *TextureSystem) Wait() {
	ts.pendingCond.L.Lock()
	for ts.pendingCount > 0 {
		ts.pendingCond.Wait()
	}
	ts.pendingCond.L.Unlock()
}

func (ts *TextureSystem) addPending() {
	ts.pendingCond.L.Lock()
	ts.pendingCount++
	ts.pendingCond.L.Unlock()
}

func (ts *TextureSystem) donePending() {
	ts.pendingCond.L.Lock()
	ts.pendingCount--
	if ts.pendingCount == 0 {
		ts.pendingCond.Broadcast()
	}
	ts.pendingCond.L.Unlock()
}

func (ts *TextureSystem) GetDefaultTexture() *metadata.Texture {
	return ts.DefaultTexture.DefaultTexture
}

// GetDefaultForUsage returns the fallback bound while a source of this usage is undefined.
func (ts *TextureSystem) GetDefaultForUsage(usage metadata.TextureUsage) *metadata.Texture {
	return ts.DefaultTexture.ForUsage(usage)
}

func (ts *TextureSystem) sourcesMatching(match func(textureKey) bool) []*texture.TextureSource {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	var out []*texture.TextureSource
	for key, ref := range ts.registeredTextureTable {
		if match(key) {
			out = append(out, ref.Source)
		}
	}
	return out
}

func (ts *TextureSystem) onAssetChanged(path string) {
	sources := ts.sourcesMatching(func(key textureKey) bool {
		local, isLocal, err := ts.assetManager.LocalPath(key.url)
		return err == nil && isLocal && filepath.Clean(local) == path
	})
	for _, src := range sources {
		core.LogInfo("reloading texture '%s'", src.URL())
		ts.loadTexture(src, src.Generation())
	}
}

func (ts *TextureSystem) destroyTexture(t *metadata.Texture) {
	if t.Flags.Has(metadata.TextureFlagIsDefault) {
		return
	}
	if err := ts.backend.TextureDestroy(t); err != nil {
		core.LogError("failed to destroy texture '%s': %s", t.Name, err)
	}
}

func (ts *TextureSystem) loadTexture(src *texture.TextureSource, generation uint64) {
	ts.addPending()
	// Kick off a texture loading job. The generation is captured now, so a
	// reset of the source while the job runs makes the result stale.
	err := ts.jobSystem.Submit(metadata.JobTask{
		JobType:  metadata.JOB_TYPE_RESOURCE_LOAD,
		Priority: metadata.JOB_PRIORITY_NORMAL,
		InputParams: &textureLoadParams{
			URL:        src.URL(),
			Usage:      src.Usage(),
			Source:     src,
			Generation: generation,
			Clock:      core.NewClock(),
		},
		OnStart:              ts.textureLoadJobStart,
		OnComplete:           ts.textureLoadJobSuccess,
		OnFailure:            ts.textureLoadJobFail,
		OnCompletionCallback: ts.donePending,
	})
	if err != nil {
		ts.donePending()
		core.LogError("Failed to schedule load of texture '%s': %s", src.URL(), err)
	}
}

func (ts *TextureSystem) textureLoadJobStart(params interface{}, resultChan chan<- interface{}) error {
	loadParams, ok := params.(*textureLoadParams)
	if !ok {
		return errors.New("params are not of type *textureLoadParams")
	}
	// Always report back, success or not.
	defer func() { resultChan <- loadParams }()
	loadParams.Clock.Start()
	defer loadParams.Clock.Stop()

	// Normal and bump slots are classified by content, so no encoding hint.
	resourceParams := &metadata.ImageResourceParams{}

	result, err := ts.assetManager.LoadAsset(ts.ctx, loadParams.URL, metadata.ResourceTypeImage, resourceParams)
	if err != nil {
		return fmt.Errorf("failed to load image for texture '%s': %w", loadParams.URL, err)
	}
	defer ts.assetManager.UnloadAsset(metadata.ResourceTypeImage, result)

	resourceData, ok := result.Data.(*metadata.ImageResourceData)
	if !ok {
		return fmt.Errorf("%w: failed to type cast resource data of '%s'", core.ErrDecodeFailure, loadParams.URL)
	}

	tex, err := texture.DecodeForUsage(loadParams.Usage, resourceData, loadParams.URL)
	if err != nil {
		return err
	}

	// Acquire internal texture resources.
	if err := ts.backend.TextureCreate(tex); err != nil {
		return fmt.Errorf("failed to upload texture '%s': %w", loadParams.URL, err)
	}
	loadParams.Texture = tex
	return nil
}

func (ts *TextureSystem) textureLoadJobSuccess(paramsChan <-chan interface{}) {
	params, ok := <-paramsChan
	if !ok {
		return
	}
	loadParams, ok := params.(*textureLoadParams)
	if !ok {
		core.LogError("params are not of type *textureLoadParams")
		return
	}

	if !loadParams.Source.ResetTextureForGeneration(loadParams.Generation, loadParams.Texture) {
		// The source was reset while decoding, the result belongs to nobody.
		core.LogDebug("discarding stale texture '%s' (%s)", loadParams.URL, core.ErrStaleResult)
		ts.destroyTexture(loadParams.Texture)
		ts.metrics.RecordStale()
		return
	}
	ts.metrics.RecordLoad(loadParams.Clock.Elapsed())
	core.LogDebug("Successfully loaded texture '%s' in %s.", loadParams.URL, loadParams.Clock.Elapsed())
}

func (ts *TextureSystem) textureLoadJobFail(paramsChan <-chan interface{}) {
	if params, ok := <-paramsChan; ok {
		if loadParams, ok := params.(*textureLoadParams); ok {
			ts.metrics.RecordFailure()
			core.LogError("Failed to load texture '%s', it stays %s.", loadParams.URL, loadParams.Source.State())
		}
	}
}
