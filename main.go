/*
Preview tool for the texture binding layer. It loads a material, waits for
its textures to resolve and writes every face and mip level of each bound
texture as a WebP file.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/HugoSmits86/nativewebp"
	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
	"github.com/spaghettifunk/texbind/engine/renderer/texture"
	"github.com/spaghettifunk/texbind/engine/systems"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	materialURL := flag.String("material", "", "material (.amt) path or url, relative to assets.base_path")
	outDir := flag.String("out", "preview", "directory the WebP files are written to")
	flag.Parse()

	if *materialURL == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := core.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = core.LoadConfig(*configPath); err != nil {
			core.LogFatal("failed to load config: %s", err)
		}
	}

	backend := renderer.NewMemoryBackend()
	sm, err := systems.NewSystemManager(cfg, backend)
	if err != nil {
		core.LogFatal(err.Error())
	}
	if err := sm.Initialize(); err != nil {
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		cancel()
	}()

	err = preview(ctx, sm, *materialURL, *outDir)
	cancel()
	if shutdownErr := sm.Shutdown(); shutdownErr != nil {
		core.LogError(shutdownErr.Error())
	}
	if err != nil {
		core.LogFatal(err.Error())
	}
}

func preview(ctx context.Context, sm *systems.SystemManager, materialURL, outDir string) error {
	m, err := sm.MaterialSystem().Acquire(ctx, materialURL)
	if err != nil {
		return err
	}
	defer sm.MaterialSystem().Release(m.Name)
	sm.TextureSystem().Wait()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	written := 0
	for slot := metadata.MaterialSlot(0); slot < metadata.MaterialSlotCount; slot++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := m.Map(slot).TextureSource()
		if src == nil {
			continue
		}
		tex, err := src.ResolvedTexture()
		if err != nil {
			core.LogWarn("%s map '%s' is %s: %s", slot, src.URL(), src.State(), err)
			continue
		}
		n, err := writeTexture(tex, filepath.Join(outDir, fmt.Sprintf("%s_%s", fileStem(m.Name), slot)))
		if err != nil {
			return err
		}
		written += n
	}
	stats := sm.TextureSystem().Metrics()
	core.LogInfo("textures: %d loaded (avg %s), %d failed", stats.Loaded, stats.Average, stats.Failed)
	core.LogInfo("material '%s': wrote %d images to %s", m.Name, written, outDir)
	return nil
}

func writeTexture(tex *metadata.Texture, prefix string) (int, error) {
	written := 0
	for face := 0; face < tex.FaceCount(); face++ {
		for mip := 0; mip < tex.MipLevelCount(); mip++ {
			img, err := texture.LevelImage(tex, face, mip)
			if err != nil {
				return written, err
			}
			name := fmt.Sprintf("%s_mip%d.webp", prefix, mip)
			if tex.TextureType == metadata.TextureTypeCube {
				name = fmt.Sprintf("%s_%s_mip%d.webp", prefix, faceSuffix(texture.CubeFace(face)), mip)
			}
			if err := writeWebP(name, img); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

func writeWebP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("WebP encode %s: %w", path, err)
	}
	core.LogDebug("wrote %s", path)
	return nil
}

// faceSuffix turns "+x" into "px" and "-x" into "nx".
func faceSuffix(face texture.CubeFace) string {
	return strings.NewReplacer("+", "p", "-", "n").Replace(face.String())
}

func fileStem(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == ' ' {
			return '_'
		}
		return r
	}, name)
}
