// Package config loads and merges rbdiff configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (RBDIFF_FORMAT, RBDIFF_CONTEXT_LINES,
//     RBDIFF_MAX_DIFF_BYTES, RBDIFF_STORE, RBDIFF_LOG_LEVEL)
//  3. Config file ($XDG_CONFIG_HOME/rbdiff/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write the config file,
// and [SetField] to update a single key.
package config
