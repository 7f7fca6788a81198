package assets

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/assets/loaders"
)

func writeSpirv(t *testing.T, path string, words int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0x07230203)))
	for i := 0; i < words; i++ {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(i)))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newTestManager(t *testing.T) (*AssetManager, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "shaders"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures"), 0o755))

	am, err := NewAssetManager()
	require.NoError(t, err)
	return am, root
}

func TestLoadShader(t *testing.T) {
	am, root := newTestManager(t)
	writeSpirv(t, filepath.Join(root, "shaders", "cull.comp.spv"), 16)
	require.NoError(t, am.Initialize(root, false))

	res, err := am.LoadShader("cull.comp.spv")
	require.NoError(t, err)
	assert.Equal(t, uint64(68), res.DataSize)
	assert.IsType(t, []byte{}, res.Data)
}

func TestLoadShaderRejectsGarbage(t *testing.T) {
	am, root := newTestManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "shaders", "bad.spv"), []byte("not spirv"), 0o644))
	require.NoError(t, am.Initialize(root, false))

	_, err := am.LoadShader("bad.spv")
	assert.Error(t, err)
}

func TestLoadTextureBuildsMipChain(t *testing.T) {
	am, root := newTestManager(t)
	writePNG(t, filepath.Join(root, "textures", "grid.png"), 8, 4)
	require.NoError(t, am.Initialize(root, false))

	res, err := am.LoadTexture("grid.png")
	require.NoError(t, err)
	td := res.Data.(*loaders.TextureData)
	assert.Equal(t, uint32(8), td.Width)
	assert.Equal(t, uint32(4), td.Height)
	// 8x4 -> 4x2 -> 2x1 -> 1x1
	require.Equal(t, uint32(4), td.MipLevels())
	assert.Len(t, td.Mips[0], 8*4*4)
	assert.Len(t, td.Mips[3], 4)
}

func TestIndexTree(t *testing.T) {
	am, root := newTestManager(t)
	writeSpirv(t, filepath.Join(root, "shaders", "draw.vert.spv"), 4)
	writePNG(t, filepath.Join(root, "textures", "noise.png"), 2, 2)
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.txt"), []byte("x"), 0o644))

	require.NoError(t, am.Initialize(root, false))
	assert.Len(t, am.Assets(), 2)
}

func TestHotReloadFiresHandlers(t *testing.T) {
	am, root := newTestManager(t)
	path := filepath.Join(root, "shaders", "draw.frag.spv")
	writeSpirv(t, path, 8)
	require.NoError(t, am.Initialize(root, true))
	defer am.Shutdown()

	reloaded := make(chan string, 1)
	am.OnShaderReload(func(p string) { reloaded <- p })

	writeSpirv(t, path, 12)

	select {
	case p := <-reloaded:
		assert.Equal(t, path, p)
	case <-time.After(5 * time.Second):
		t.Fatal("shader reload handler was not called")
	}
}
