// Package media runs the external tools that turn chunk files into
// comparable material: ffmpeg for frame and audio extraction, ffprobe for
// durations, and fpcalc for chromaprint audio fingerprints. Frame
// embeddings come from a separate inference service reached over HTTP.
package media
