package pubsub

import "time"

// Workflow labels which pipeline a progress event belongs to.
type Workflow string

const (
	WorkflowRegister Workflow = "register"
	WorkflowVerify   Workflow = "verify"
)

// EventType labels the lifecycle moment a progress event reports.
type EventType string

const (
	EventChunkProcessing EventType = "chunk_processing"
	EventChunkCompleted  EventType = "chunk_completed"
	EventChunkFailed     EventType = "chunk_failed"
	EventJobCompleted    EventType = "job_completed"
	EventJobFailed       EventType = "job_failed"
)

// TaskEvent reports the progress of a single chunk task. Published on the
// task status subject keyed by task id, so a submitter can follow one
// chunk's processing.
type TaskEvent struct {
	TaskID      string    `json:"task_id"`
	JobID       string    `json:"job_id"`
	Workflow    Workflow  `json:"workflow"`
	Type        EventType `json:"type"`
	ChunkIndex  *int      `json:"chunk_index,omitempty"`
	Completed   int       `json:"completed_chunks"`
	Total       int       `json:"total_chunks"`
	ImageScore  *float64  `json:"image_similarity,omitempty"`
	AudioScore  *float64  `json:"audio_similarity,omitempty"`
	Provisional bool      `json:"provisional,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// JobEvent reports a whole-job outcome. Published on the video status
// subject keyed by job id once the final chunk triggers finalization, or
// when a job fails.
type JobEvent struct {
	JobID      string    `json:"job_id"`
	Workflow   Workflow  `json:"workflow"`
	Type       EventType `json:"type"`
	ImageScore *float64  `json:"image_similarity,omitempty"`
	AudioScore *float64  `json:"audio_similarity,omitempty"`
	Matched    *bool     `json:"matched,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
