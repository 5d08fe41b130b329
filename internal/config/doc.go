// Package config loads, normalizes, and validates gazerec configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DISPLAY and GAZEREC_ISSUER_URL. The Config type centralizes every knob the
// recorder, exporter and CLI need so capture devices, storage locations and
// upload endpoints are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
