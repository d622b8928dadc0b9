package store

import (
	"encoding/binary"
	"math"
	"time"
)

// JobStatus represents the lifecycle of a chunked job (reference video or
// verify session). Completed and failed are terminal.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ChunkStatus represents the lifecycle of a single chunk. A chunk is mutated
// once, at completion, and never revisited.
type ChunkStatus string

const (
	ChunkPending   ChunkStatus = "pending"
	ChunkCompleted ChunkStatus = "completed"
)

// Progress is the post-increment counter pair returned by chunk completion.
// The caller that observes Completed == Total owns finalization.
type Progress struct {
	Completed int
	Total     int
}

// Done reports whether every chunk of the job has completed.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Completed == p.Total
}

// ReferenceVideo is a registered (or registering) reference that later
// verification runs are compared against.
type ReferenceVideo struct {
	ID              string
	DisplayName     string
	Status          JobStatus
	TotalChunks     int
	CompletedChunks int
	Duration        float64
	FPS             float64
	FrameCount      int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RegisterChunk is one time-span slice of a reference video, processed as an
// independent unit of work during registration.
type RegisterChunk struct {
	ID          int64
	VideoID     string
	ChunkIndex  int
	StartTime   float64
	Duration    float64
	FrameCount  int
	Status      ChunkStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// FrameFingerprint is one frame's embedding, keyed by the global frame index
// so frames are comparable across chunks.
type FrameFingerprint struct {
	VideoID    string
	ChunkIndex int
	FrameIndex int
	Timestamp  float64
	Embedding  []float32
}

// AudioFingerprint is a chromaprint byte sequence for either one chunk
// (ChunkIndex set) or the whole reference video (ChunkIndex nil, produced by
// finalize and superseding the per-chunk rows).
type AudioFingerprint struct {
	VideoID     string
	ChunkIndex  *int
	StartTime   float64
	Duration    float64
	Fingerprint []byte
}

// VerifySession is one verification run of a query video against a
// registered reference.
type VerifySession struct {
	ID              string
	VideoID         string
	QueryName       string
	Status          JobStatus
	TotalChunks     int
	CompletedChunks int
	AvgImageScore   *float64
	AvgAudioScore   *float64
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// VerifyChunk is one time-span slice of the query video. Either similarity
// may be absent when that modality was unavailable for the chunk.
type VerifyChunk struct {
	ID          int64
	SessionID   string
	ChunkIndex  int
	StartTime   float64
	Duration    float64
	ImageScore  *float64
	AudioScore  *float64
	Status      ChunkStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// encodeEmbedding packs an embedding vector as little-endian float32 bytes
// for blob storage.
func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks a stored embedding blob.
func decodeEmbedding(buf []byte) []float32 {
	vec := make([]float32, 0, len(buf)/4)
	for i := 0; i+4 <= len(buf); i += 4 {
		vec = append(vec, math.Float32frombits(binary.LittleEndian.Uint32(buf[i:i+4])))
	}
	return vec
}
