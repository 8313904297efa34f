package catalog

import "errors"

// Domain errors for catalog operations.
var (
	// ErrDeviceNotFound indicates the requested device id is not in the catalog.
	ErrDeviceNotFound = errors.New("catalog: device not found")

	// ErrInvalidCatalog indicates an externally loaded catalog file is malformed.
	ErrInvalidCatalog = errors.New("catalog: invalid catalog")
)
