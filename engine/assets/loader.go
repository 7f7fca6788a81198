package assets

import "path/filepath"

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeShader
	AssetTypeTexture
)

// Resource is the outcome of a loader run. Data holds the loader-specific
// payload: []byte for shaders, *loaders.TextureData for textures.
type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}

type Loader interface {
	Load(path string) (*Resource, error)
	Unload(*Resource) error
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".spv":
		return AssetTypeShader
	case ".png", ".jpg", ".jpeg":
		return AssetTypeTexture
	default:
		return AssetTypeNone
	}
}
