// Package config loads the service's configuration from defaults, layered
// YAML files, and environment variables, and validates the result before
// the rest of the service starts.
//
// # Configuration hierarchy
//
// Highest priority wins:
//  1. Defaults in code (DefaultConfig)
//  2. config/base.yaml
//  3. config/{environment}.yaml
//  4. Environment variables (MEMORYD_*)
//
// # Hot reload
//
// Outside Production, Watcher reloads configuration when the config
// directory changes and notifies the callbacks registered with OnChange.
// cmd/memoryd registers none, so a reload does not reach the running
// coordinator; its schedule changes only through Coordinator.UpdateConfig.
package config
