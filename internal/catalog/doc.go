// Package catalog holds the descriptors of the simulated devices the server
// exposes: ids, display names, ports, capabilities, and pin maps.
//
// The catalog is read-only after startup. A built-in set covers the four
// supported board families; an external YAML file can replace it. Lookups
// return deep copies so sessions keep stable snapshots of the device they
// attached to.
package catalog
