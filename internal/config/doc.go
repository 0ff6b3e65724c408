// Package config loads, normalizes, and validates calmatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the CALMATCH_RAW_DIR environment
// fallback. The Config type centralizes the search roots, matching caps and
// logging knobs the CLI needs so every command resolves them the same way.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
