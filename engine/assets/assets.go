package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/prisma/engine/assets/loaders"
	"github.com/spaghettifunk/prisma/engine/core"
)

type AssetInfo struct {
	Path       string
	Type       AssetType
	LastLoaded time.Time
}

// AssetManager indexes the files under the assets root and, when hot reload
// is enabled, watches the tree with fsnotify. A rewritten shader binary
// triggers the registered reload handlers and an EVENT_CODE_SHADER_RELOADED
// event.
type AssetManager struct {
	root   string
	assets map[string]AssetInfo

	shaderLoader  *loaders.ShaderLoader
	textureLoader *loaders.TextureLoader

	mutex          sync.RWMutex
	reloadHandlers []func(path string)

	fsnotify  *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

func NewAssetManager() (*AssetManager, error) {
	return &AssetManager{
		assets:        make(map[string]AssetInfo),
		shaderLoader:  &loaders.ShaderLoader{},
		textureLoader: &loaders.TextureLoader{GenerateMips: true},
		done:          make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string, hotReload bool) error {
	am.root = assetsDir

	if err := am.indexTree(assetsDir); err != nil {
		return err
	}

	if !hotReload {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = watcher
	if err := am.watchTree(assetsDir); err != nil {
		watcher.Close()
		am.fsnotify = nil
		return err
	}
	go am.watchLoop()
	core.LogInfo("asset hot reload enabled for %s", assetsDir)
	return nil
}

func (am *AssetManager) Shutdown() error {
	am.closeOnce.Do(func() { close(am.done) })
	return nil
}

// OnShaderReload registers fn to be called with the changed file's path
// every time a watched shader binary is rewritten.
func (am *AssetManager) OnShaderReload(fn func(path string)) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.reloadHandlers = append(am.reloadHandlers, fn)
}

// ShaderPath resolves a shader name to its on-disk location.
func (am *AssetManager) ShaderPath(name string) string {
	return filepath.Join(am.root, "shaders", name)
}

// LoadShader reads the named compiled shader from the assets tree.
func (am *AssetManager) LoadShader(name string) (*Resource, error) {
	path := am.ShaderPath(name)
	data, err := am.shaderLoader.Load(path)
	if err != nil {
		return nil, err
	}
	am.touch(path, AssetTypeShader)
	return &Resource{
		Name:     name,
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     data,
	}, nil
}

// LoadTexture decodes the named image and builds its mip chain.
func (am *AssetManager) LoadTexture(name string) (*Resource, error) {
	path := filepath.Join(am.root, "textures", name)
	td, err := am.textureLoader.Load(path)
	if err != nil {
		return nil, err
	}
	am.touch(path, AssetTypeTexture)
	var size uint64
	for _, mip := range td.Mips {
		size += uint64(len(mip))
	}
	return &Resource{
		Name:     name,
		FullPath: path,
		DataSize: size,
		Data:     td,
	}, nil
}

func (am *AssetManager) touch(path string, t AssetType) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{Path: path, Type: t, LastLoaded: time.Now()}
}

func (am *AssetManager) indexTree(root string) error {
	return filepath.Walk(root, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		if t := determineAssetType(walkPath); t != AssetTypeNone {
			am.mutex.Lock()
			am.assets[walkPath] = AssetInfo{Path: walkPath, Type: t}
			am.mutex.Unlock()
		}
		return nil
	})
}

func (am *AssetManager) watchTree(root string) error {
	return filepath.Walk(root, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (am *AssetManager) watchLoop() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
			am.watchTree(e.Name)
			return
		}
	}
	if e.Op&fsnotify.Remove != 0 {
		am.mutex.Lock()
		delete(am.assets, e.Name)
		am.mutex.Unlock()
		return
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	t := determineAssetType(e.Name)
	if t == AssetTypeNone {
		return
	}
	am.touch(e.Name, t)

	if t != AssetTypeShader {
		return
	}
	am.mutex.RLock()
	handlers := make([]func(string), len(am.reloadHandlers))
	copy(handlers, am.reloadHandlers)
	am.mutex.RUnlock()

	core.LogDebug("shader %s changed on disk", e.Name)
	for _, fn := range handlers {
		fn(e.Name)
	}
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_SHADER_RELOADED,
		Data: &core.AssetEvent{Path: e.Name},
	})
}

// Assets returns a snapshot of the index, for diagnostics.
func (am *AssetManager) Assets() []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		out = append(out, a)
	}
	return out
}
