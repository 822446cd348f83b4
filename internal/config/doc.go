// Package config provides configuration structures and utilities for deepscan.
// It defines the crawl limits consumed by the deep scanner, the storage
// backend selection, the optimistic-concurrency retry budget of the
// website scan writer, and worker settings.
//
// Configuration is read from a YAML file (see LoadFile and FindConfigFile)
// on top of the defaults returned by NewServiceConfig.
package config
