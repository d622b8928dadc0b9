// Package config loads, normalizes, and validates reprintd configuration.
//
// Configuration lives in a TOML file (default ~/.config/reprint/config.toml)
// with sections per subsystem: paths, storage (S3/MinIO object store), broker
// (NATS task and status subjects), media (extraction tunables), embedder
// (embedding service endpoint), and matching thresholds. Secrets may be
// supplied via environment variables instead of the file.
package config
