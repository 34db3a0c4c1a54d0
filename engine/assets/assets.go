package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-gfx/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

type AssetInfo struct {
	Name     string
	Path     string
	Type     metadata.ResourceType
	Modified time.Time
}

// AssetManager indexes the files under an asset root and keeps the index
// current as files are created, written and removed.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	onChange func(AssetInfo, fsnotify.Op)

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() *AssetManager {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
	}
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeText, &loaders.TextLoader{})
	return am
}

// Initialize indexes assetsDir. When watch is set the directory tree is
// watched until Close.
func (am *AssetManager) Initialize(assetsDir string, watch bool) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return core.Errorf("assets_init", core.ErrUnknown, "%v", err)
	}
	am.root = root

	if watch {
		fsWatch, err := fsnotify.NewWatcher()
		if err != nil {
			return core.Errorf("assets_init", core.ErrUnknown, "%v", err)
		}
		am.fsnotify = fsWatch
		am.done = make(chan struct{})
		am.stopped = make(chan struct{})
		go am.start()
	}

	if err := am.watchRecursive(root); err != nil {
		return core.Errorf("assets_init", core.ErrUnknown, "%v", err)
	}
	core.LogDebug("indexed %d assets under `%s`", am.Len(), root)
	return nil
}

// OnChange sets a callback fired from the watcher goroutine for every
// indexed file that changes.
func (am *AssetManager) OnChange(fn func(AssetInfo, fsnotify.Op)) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.onChange = fn
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.ToSlash(name)]
	return info, ok
}

// Names lists the indexed assets in lexical order.
func (am *AssetManager) Names() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	names := make([]string, 0, len(am.assets))
	for n := range am.assets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// LoadAsset loads an indexed asset with the loader of its type.
func (am *AssetManager) LoadAsset(name string) (*metadata.Resource, error) {
	asset, exists := am.Lookup(name)
	if !exists {
		return nil, core.Errorf("asset_load", core.ErrUnknown, "asset not found: %s", name)
	}
	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, core.Errorf("asset_load", core.ErrUnknown, "no loader registered for asset type: %s", asset.Type)
	}
	return loader.Load(asset.Name, asset.Path)
}

// LoadShader returns the SPIR-V words of a compiled shader.
func (am *AssetManager) LoadShader(name string) ([]uint32, error) {
	res, err := am.LoadAsset(name)
	if err != nil {
		return nil, err
	}
	code, ok := res.Data.([]uint32)
	if !ok {
		return nil, core.Errorf("shader_load", core.ErrUnknown, "`%s` is a %s asset", name, res.Type)
	}
	return code, nil
}

func (am *AssetManager) UnloadAsset(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	loader, ok := am.loaders[res.Type]
	if !ok {
		return nil
	}
	return loader.Unload(res)
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
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("cannot watch `%s`: %v", e.Name, err)
					}
				}
				continue
			}
			switch {
			case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
				am.handleFileEvent(e.Name, e.Op)
			case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				am.removeAsset(e.Name, e.Op)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err.Error())

		case <-am.done:
			return
		}
	}
}

// watchRecursive indexes every file under path and, with a watcher, adds
// each directory to it.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if am.fsnotify != nil {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.index(walkPath, fi.ModTime())
		return nil
	})
}

func (am *AssetManager) name(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (am *AssetManager) index(path string, modified time.Time) (AssetInfo, bool) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return AssetInfo{}, false
	}
	name, ok := am.name(path)
	if !ok {
		return AssetInfo{}, false
	}
	info := AssetInfo{Name: name, Path: path, Type: assetType, Modified: modified}
	am.mutex.Lock()
	am.assets[name] = info
	am.mutex.Unlock()
	return info, true
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string, op fsnotify.Op) {
	info, ok := am.index(path, time.Now())
	if !ok {
		return
	}
	am.notify(info, op)
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string, op fsnotify.Op) {
	name, ok := am.name(path)
	if !ok {
		return
	}
	am.mutex.Lock()
	info, exists := am.assets[name]
	delete(am.assets, name)
	am.mutex.Unlock()
	if exists {
		am.notify(info, op)
	}
}

func (am *AssetManager) notify(info AssetInfo, op fsnotify.Op) {
	am.mutex.RLock()
	fn := am.onChange
	am.mutex.RUnlock()
	if fn != nil {
		fn(info, op)
	}
}

// Close stops watching. The index stays readable.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed || am.fsnotify == nil {
		am.isClosed = true
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	<-am.stopped
	if err := am.fsnotify.Close(); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
		return core.Errorf("assets_close", core.ErrUnknown, "%v", err)
	}
	return nil
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return metadata.ResourceTypeShader
	case ".vert", ".frag", ".glsl", ".toml", ".txt":
		return metadata.ResourceTypeText
	case ".bin":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}
