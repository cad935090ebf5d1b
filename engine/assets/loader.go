package assets

import "github.com/spaghettifunk/texbind/engine/renderer/metadata"

// Loader turns fetched bytes into a resource. `interface{}` params allow
// loaders to take their own options.
type Loader interface {
	Load(name string, data []byte, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
