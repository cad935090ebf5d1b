package assets

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func newManager(t *testing.T, dir string, watch bool) *AssetManager {
	t.Helper()
	am, err := NewAssetManager(core.AssetConfig{BasePath: dir, Watch: watch, HTTPTimeoutSeconds: 5})
	require.NoError(t, err)
	require.NoError(t, am.Initialize())
	t.Cleanup(func() { am.Shutdown() })
	return am
}

func TestFetchLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("abc"), 0o644))
	am := newManager(t, dir, false)
	ctx := context.Background()

	data, err := am.Fetch(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	data, err = am.Fetch(ctx, "file://"+filepath.ToSlash(filepath.Join(dir, "a.png")))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	_, err = am.Fetch(ctx, "missing.png")
	assert.ErrorIs(t, err, core.ErrAssetNotFound)

	_, err = am.Fetch(ctx, "")
	assert.ErrorIs(t, err, core.ErrAssetNotFound)

	_, err = am.Fetch(ctx, "ftp://example.com/a.png")
	assert.ErrorIs(t, err, core.ErrUnsupportedScheme)
}

func TestFetchRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sky.png":
			w.Write([]byte("sky"))
		case "/broken.png":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	am := newManager(t, t.TempDir(), false)
	ctx := context.Background()

	data, err := am.Fetch(ctx, srv.URL+"/sky.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("sky"), data)

	_, err = am.Fetch(ctx, srv.URL+"/nope.png")
	assert.ErrorIs(t, err, core.ErrAssetNotFound)

	_, err = am.Fetch(ctx, srv.URL+"/broken.png")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrAssetNotFound)
}

func TestFetchRemoteSizeLimit(t *testing.T) {
	body := bytes.Repeat([]byte{0xab}, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chunked.png" {
			// No Content-Length, the limit applies while reading.
			w.Header().Set("Transfer-Encoding", "chunked")
			w.Write(body[:32])
			w.(http.Flusher).Flush()
			w.Write(body[32:])
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	am, err := NewAssetManager(core.AssetConfig{BasePath: t.TempDir(), HTTPTimeoutSeconds: 5, MaxFetchBytes: 16})
	require.NoError(t, err)
	require.NoError(t, am.Initialize())
	defer am.Shutdown()
	ctx := context.Background()

	_, err = am.Fetch(ctx, srv.URL+"/big.png")
	assert.ErrorIs(t, err, core.ErrAssetTooLarge)

	_, err = am.Fetch(ctx, srv.URL+"/chunked.png")
	assert.ErrorIs(t, err, core.ErrAssetTooLarge)

	am.config.MaxFetchBytes = int64(len(body))
	data, err := am.Fetch(ctx, srv.URL+"/big.png")
	require.NoError(t, err)
	assert.Equal(t, body, data)
}

func TestLocalPath(t *testing.T) {
	am := newManager(t, "assets", false)

	p, local, err := am.LocalPath("textures/brick.png")
	require.NoError(t, err)
	assert.True(t, local)
	assert.Equal(t, filepath.Join("assets", "textures", "brick.png"), p)

	_, local, err = am.LocalPath("https://cdn.example.com/brick.png")
	require.NoError(t, err)
	assert.False(t, local)
}

func TestLoadAsset(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grey.png"), pngBytes(t), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.amt"), []byte("name = m\ndiffuse_map = grey.png"), 0o644))
	am := newManager(t, dir, false)
	ctx := context.Background()

	res, err := am.LoadAsset(ctx, "grey.png", metadata.ResourceTypeImage, &metadata.ImageResourceParams{})
	require.NoError(t, err)
	img, ok := res.Data.(*metadata.ImageResourceData)
	require.True(t, ok)
	assert.Equal(t, uint8(1), img.ChannelCount)
	require.NoError(t, am.UnloadAsset(metadata.ResourceTypeImage, res))

	info, ok := am.Asset("grey.png")
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeImage, info.Type)

	res, err = am.LoadAsset(ctx, "m.amt", metadata.ResourceTypeMaterial, nil)
	require.NoError(t, err)
	assert.Equal(t, "m", res.Name)

	_, err = am.LoadAsset(ctx, "grey.png", metadata.ResourceTypeNone, nil)
	assert.Error(t, err)
}

func TestWatchNotifiesSubscribers(t *testing.T) {
	dir := t.TempDir()
	am := newManager(t, dir, true)

	changed := make(chan string, 16)
	am.Subscribe(func(path string) { changed <- path })

	target := filepath.Join(dir, "brick.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(target, pngBytes(t), 0o644))

	select {
	case p := <-changed:
		assert.Equal(t, target, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification received")
	}
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, metadata.ResourceTypeImage, determineAssetType("a/b.PNG"))
	assert.Equal(t, metadata.ResourceTypeImage, determineAssetType("sky.tga"))
	assert.Equal(t, metadata.ResourceTypeMaterial, determineAssetType("wall.amt"))
	assert.Equal(t, metadata.ResourceTypeNone, determineAssetType("readme.md"))
}
