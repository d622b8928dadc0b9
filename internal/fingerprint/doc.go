// Package fingerprint implements the perceptual comparison primitives used by
// the registration and verification pipelines.
//
// Audio fingerprints are ordered sequences of 32-bit chromaprint codes, each
// covering SubFPSeconds of audio. Alignment slides the query against the base
// in a coarse-then-fine search and scores bit-level agreement of the
// overlapping codes. Image comparison scores two ordered sets of per-frame
// embeddings via a cosine-similarity matrix with a greedy best-match per
// query frame.
//
// Everything in this package is a pure function: no state, no I/O. Persistence
// and orchestration live in internal/store and internal/pipeline.
package fingerprint
