// Package config loads paplin's runtime configuration.
//
// Values are layered: baseline defaults, then an optional YAML file, then
// PAPLIN_* environment variables. The merged result is validated before use.
package config
