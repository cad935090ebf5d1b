package texture

import (
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
)

/** @brief Lifecycle of a texture source. */
type SourceState int

const (
	/** @brief No url and no texture. */
	SourceStateUndefined SourceState = iota
	/** @brief A url is set, its texture is not resolved yet. */
	SourceStatePending
	/** @brief A GPU texture is held. */
	SourceStateReady
)

func (s SourceState) String() string {
	switch s {
	case SourceStatePending:
		return "pending"
	case SourceStateReady:
		return "ready"
	default:
		return "undefined"
	}
}

// ReleaseFunc receives every GPU texture a source lets go of.
type ReleaseFunc func(texture *metadata.Texture)

// sourceSnapshot is never mutated once published.
type sourceSnapshot struct {
	url        string
	usage      metadata.TextureUsage
	generation uint64
	texture    *metadata.Texture
}

var emptySnapshot = &sourceSnapshot{usage: metadata.NewTextureUsage()}

// TextureSource binds a url and its usage to a lazily resolved GPU texture.
// A single source is meant to be shared by every TextureMap that samples the
// same url. Readers never block: they load one immutable snapshot, so they
// see either the previous texture or the new one. Writers are serialised.
//
// Every Reset bumps the generation. Asynchronous loaders capture it before
// decoding and hand the result to ResetTextureForGeneration, which drops
// results that belong to a superseded identity.
type TextureSource struct {
	mu        sync.Mutex
	state     atomic.Pointer[sourceSnapshot]
	onRelease ReleaseFunc
}

func NewTextureSource() *TextureSource {
	return &TextureSource{}
}

// NewTextureSourceWithRelease returns a source that hands replaced textures
// to release, typically the renderer backend's destroy call.
func NewTextureSourceWithRelease(release ReleaseFunc) *TextureSource {
	return &TextureSource{onRelease: release}
}

func (ts *TextureSource) snapshot() *sourceSnapshot {
	if s := ts.state.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

func (ts *TextureSource) URL() string {
	return ts.snapshot().url
}

func (ts *TextureSource) Type() metadata.TextureType {
	return ts.snapshot().usage.Type
}

func (ts *TextureSource) Usage() metadata.TextureUsage {
	return ts.snapshot().usage
}

func (ts *TextureSource) Generation() uint64 {
	return ts.snapshot().generation
}

// GPUTexture returns the current texture, or nil. The caller must not keep
// it beyond the frame it was fetched for.
func (ts *TextureSource) GPUTexture() *metadata.Texture {
	return ts.snapshot().texture
}

func (ts *TextureSource) IsDefined() bool {
	return ts.snapshot().texture != nil
}

func (ts *TextureSource) State() SourceState {
	s := ts.snapshot()
	switch {
	case s.texture != nil:
		return SourceStateReady
	case s.url != "":
		return SourceStatePending
	default:
		return SourceStateUndefined
	}
}

// ResolvedTexture is GPUTexture with an error for the undefined case.
func (ts *TextureSource) ResolvedTexture() (*metadata.Texture, error) {
	s := ts.snapshot()
	if s.texture == nil {
		return nil, core.ErrUndefinedSource
	}
	return s.texture, nil
}

// Reset assigns a new identity and drops the current texture. It performs no
// decoding or I/O; the source stays pending until a texture is supplied.
func (ts *TextureSource) Reset(url string, usage metadata.TextureUsage) uint64 {
	ts.mu.Lock()
	prev := ts.snapshot()
	next := &sourceSnapshot{
		url:        url,
		usage:      usage,
		generation: prev.generation + 1,
	}
	ts.state.Store(next)
	ts.mu.Unlock()

	ts.release(prev.texture)
	return next.generation
}

// ResetTexture replaces the held texture, nil included, regardless of the
// generation. The previous texture is released.
func (ts *TextureSource) ResetTexture(texture *metadata.Texture) {
	ts.mu.Lock()
	prev := ts.swapTexture(texture)
	ts.mu.Unlock()

	if prev != texture {
		ts.release(prev)
	}
}

// ResetTextureForGeneration applies texture only when generation is still
// the current one. It reports whether the texture was applied; a false
// return means the caller still owns texture.
func (ts *TextureSource) ResetTextureForGeneration(generation uint64, texture *metadata.Texture) bool {
	ts.mu.Lock()
	if ts.snapshot().generation != generation {
		ts.mu.Unlock()
		return false
	}
	prev := ts.swapTexture(texture)
	ts.mu.Unlock()

	if prev != texture {
		ts.release(prev)
	}
	return true
}

// swapTexture must be called with mu held.
func (ts *TextureSource) swapTexture(texture *metadata.Texture) *metadata.Texture {
	prev := ts.snapshot()
	next := *prev
	next.texture = texture
	ts.state.Store(&next)
	return prev.texture
}

func (ts *TextureSource) release(texture *metadata.Texture) {
	if texture == nil || ts.onRelease == nil {
		return
	}
	ts.onRelease(texture)
}
