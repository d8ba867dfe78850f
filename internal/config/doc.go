// Package config defines the format-agnostic configuration of the canvas
// server, its defaults and validation, the Loader interface implemented by
// format-specific loaders, and a Watcher that reloads the configuration when
// its files change.
//
// Concrete loaders, such as the HCL one, live in separate packages.
package config
