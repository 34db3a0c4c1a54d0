package assets

import "github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"

// Loader reads one resource type from disk. name is the path relative to
// the asset root, path the one on disk.
type Loader interface {
	Load(name, path string) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
