// Package config provides configuration loading for the hardware bridge server.
//
// Configuration is read from a single YAML file, with hardcoded defaults
// applied first and HWBRIDGE_* environment variables applied last. The
// defaults alone form a runnable configuration so a file is only needed to
// deviate from them.
package config
