package catalog

import _ "embed"

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Default returns the catalog shipped in the binary: the CAQH data-summary
// field set used when no catalog file is configured.
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}
