package renderer

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
)

// TextureBackend is the part of a renderer backend the texture layer talks
// to. Implementations own the GPU memory; this module only hands textures
// over for upload and back for destruction. A destroyed texture may still be
// read by views resolved before the release, so TextureDestroy must not write
// to it.
type TextureBackend interface {
	TextureCreate(texture *metadata.Texture) error
	TextureDestroy(texture *metadata.Texture) error
}

/** @brief Handle stored in Texture.InternalData by MemoryBackend. */
type MemoryTextureHandle struct {
	ID    uuid.UUID
	Bytes uint64
}

// MemoryBackend keeps uploaded textures in host memory. It backs tests and
// offline tools that have no GPU.
type MemoryBackend struct {
	mu        sync.Mutex
	resident  map[uuid.UUID]*MemoryTextureHandle
	created   uint64
	destroyed uint64
	bytes     uint64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		resident: make(map[uuid.UUID]*MemoryTextureHandle),
	}
}

func (mb *MemoryBackend) TextureCreate(texture *metadata.Texture) error {
	if texture == nil {
		return fmt.Errorf("func TextureCreate - texture is nil")
	}
	if texture.FaceCount() == 0 || texture.MipLevelCount() == 0 {
		return fmt.Errorf("func TextureCreate - texture '%s' has no pixel data", texture.Name)
	}

	size := uint64(0)
	for _, face := range texture.Layers {
		for _, level := range face {
			size += uint64(len(level.Pixels))
		}
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, ok := mb.resident[texture.ID]; ok {
		return fmt.Errorf("func TextureCreate - texture '%s' (%s) is already resident", texture.Name, texture.ID)
	}
	handle := &MemoryTextureHandle{ID: texture.ID, Bytes: size}
	mb.resident[texture.ID] = handle
	mb.created++
	mb.bytes += size

	texture.InternalData = handle
	if texture.Generation == metadata.InvalidID {
		texture.Generation = 0
	} else {
		texture.Generation++
	}

	core.LogDebug("texture '%s' uploaded (%s, %dx%d, %d faces, %d mips, %d bytes)",
		texture.Name, texture.Format, texture.Width, texture.Height, texture.FaceCount(), texture.MipLevelCount(), size)
	return nil
}

func (mb *MemoryBackend) TextureDestroy(texture *metadata.Texture) error {
	if texture == nil {
		return nil
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	handle, ok := mb.resident[texture.ID]
	if !ok {
		return fmt.Errorf("func TextureDestroy - texture '%s' (%s) is not resident", texture.Name, texture.ID)
	}
	delete(mb.resident, texture.ID)
	mb.destroyed++
	mb.bytes -= handle.Bytes
	return nil
}

func (mb *MemoryBackend) IsResident(texture *metadata.Texture) bool {
	if texture == nil {
		return false
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	_, ok := mb.resident[texture.ID]
	return ok
}

/** @brief Counters reported by MemoryBackend. */
type MemoryBackendStats struct {
	Resident  int
	Created   uint64
	Destroyed uint64
	Bytes     uint64
}

func (mb *MemoryBackend) Stats() MemoryBackendStats {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return MemoryBackendStats{
		Resident:  len(mb.resident),
		Created:   mb.created,
		Destroyed: mb.destroyed,
		Bytes:     mb.bytes,
	}
}
