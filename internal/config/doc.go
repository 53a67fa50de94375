// Package config provides configuration structures and utilities for linkspider.
// It defines crawl options, per-host request settings loaded from YAML, and
// the XDG directories used for the config file and run history.
package config
