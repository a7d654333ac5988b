// Package config provides configuration structures and utilities for sitemapper.
// It defines the crawl, fetch and report options, the per-site YAML file
// and the XDG locations used for data and configuration.
package config
