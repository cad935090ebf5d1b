package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/texbind/engine/assets/loaders"
	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// ChangeFunc is called with the cleaned local path of a created or written file.
type ChangeFunc func(path string)

type AssetManager struct {
	config core.AssetConfig
	client *http.Client

	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	subscribers []ChangeFunc

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(config core.AssetConfig) (*AssetManager, error) {
	timeout := time.Duration(config.HTTPTimeoutSeconds) * time.Second
	return &AssetManager{
		config:  config,
		client:  &http.Client{Timeout: timeout},
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize() error {
	// Register loaders
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeMaterial, &loaders.MaterialLoader{})

	if !am.config.Watch {
		close(am.stopped)
		return nil
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch

	if err := am.addRecursive(am.config.BasePath); err != nil {
		am.fsnotify.Close()
		am.fsnotify = nil
		close(am.stopped)
		return err
	}
	go am.start()

	core.LogInfo("watching '%s' for texture changes", am.config.BasePath)
	return nil
}

func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	if am.fsnotify != nil {
		close(am.done)
		<-am.stopped
	}
	return nil
}

// Subscribe registers fn for file change notifications. Only called while watching.
func (am *AssetManager) Subscribe(fn ChangeFunc) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.subscribers = append(am.subscribers, fn)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LocalPath maps a plain path or file:// url onto the filesystem. The second
// return value is false for remote urls.
func (am *AssetManager) LocalPath(rawURL string) (string, bool, error) {
	u, err := url.Parse(rawURL)
	// A drive letter parses as a one letter scheme.
	if err != nil || len(u.Scheme) <= 1 {
		return am.resolve(rawURL), true, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		return am.resolve(filepath.FromSlash(p)), true, nil
	case "http", "https":
		return "", false, nil
	default:
		return "", false, fmt.Errorf("%w: %s", core.ErrUnsupportedScheme, u.Scheme)
	}
}

func (am *AssetManager) resolve(p string) string {
	if filepath.IsAbs(p) || am.config.BasePath == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(am.config.BasePath, p)
}

// Fetch returns the raw bytes behind a texture url.
func (am *AssetManager) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty url", core.ErrAssetNotFound)
	}
	local, isLocal, err := am.LocalPath(rawURL)
	if err != nil {
		return nil, err
	}
	if isLocal {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(local)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrAssetNotFound, local)
		}
		return data, err
	}
	return am.fetchRemote(ctx, rawURL)
}

func (am *AssetManager) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := am.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", core.ErrAssetNotFound, rawURL)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("fetching %s: unexpected status %s", rawURL, resp.Status)
	}

	limit := am.config.MaxFetchBytes
	if limit <= 0 {
		limit = core.DefaultMaxFetchBytes
	}
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", core.ErrAssetTooLarge, rawURL, resp.ContentLength, limit)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", core.ErrAssetTooLarge, rawURL, limit)
	}
	return data, nil
}

// Load an asset using the appropriate loader
func (am *AssetManager) LoadAsset(ctx context.Context, rawURL string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	am.mutex.RLock()
	loader, loaderExists := am.loaders[resourceType]
	am.mutex.RUnlock()
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}

	data, err := am.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	resource, err := loader.Load(rawURL, data, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[rawURL] = AssetInfo{
		Path:       rawURL,
		Type:       resourceType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()

	return resource, nil
}

func (am *AssetManager) UnloadAsset(resourceType metadata.ResourceType, asset *metadata.Resource) error {
	am.mutex.RLock()
	loader, ok := am.loaders[resourceType]
	am.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}
	return loader.Unload(asset)
}

// Asset reports the last load of rawURL.
func (am *AssetManager) Asset(rawURL string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[rawURL]
	return info, ok
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("failed to watch '%s': %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if unWatch {
			return am.fsnotify.Remove(walkPath)
		}
		return am.fsnotify.Add(walkPath)
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	path = filepath.Clean(path)
	if determineAssetType(path) == metadata.ResourceTypeNone {
		return
	}

	am.mutex.RLock()
	subscribers := make([]ChangeFunc, len(am.subscribers))
	copy(subscribers, am.subscribers)
	am.mutex.RUnlock()

	core.LogDebug("asset changed: %s", path)
	for _, fn := range subscribers {
		fn(path)
	}
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tga", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage
	case ".amt":
		return metadata.ResourceTypeMaterial
	default:
		return metadata.ResourceTypeNone
	}
}
