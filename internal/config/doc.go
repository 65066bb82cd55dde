// Package config provides configuration structures and utilities for
// LeakHound. It defines the pipeline options (Tor connectivity, fetch
// retry policy, scheduler cadence, storage paths) and loads optional
// YAML files that seed monitored targets.
package config
