package envman

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/types"
)

// DependencyIndex is the supported-dependency catalog, keyed by
// dependency identifier.
type DependencyIndex map[string]types.DependencyDescriptor

// Lookup implements types.DependencyCatalog.
func (i DependencyIndex) Lookup(id string) (types.DependencyDescriptor, bool) {
	descriptor, ok := i[id]
	return descriptor, ok
}

// ParseDependencyIndex decodes a supported-dependency index document.
func ParseDependencyIndex(data []byte) (DependencyIndex, error) {
	var index DependencyIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrap(err, errors.ErrManifestMalformed, "cannot parse dependency index")
	}
	if index == nil {
		index = DependencyIndex{}
	}
	return index, nil
}

// LoadDependencyIndex reads the index from a local file. A missing
// file yields an empty index: every dependency becomes unknown, which
// the dependency installer logs and skips.
func LoadDependencyIndex(path string) (DependencyIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DependencyIndex{}, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read dependency index %s", path)
	}
	return ParseDependencyIndex(data)
}
