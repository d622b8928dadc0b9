package pipeline

import (
	"strings"

	"reprint/internal/services"
)

// RegisterTask is the payload of one registration chunk task.
type RegisterTask struct {
	TaskID      string  `json:"task_id"`
	ObjectKey   string  `json:"object_key"`
	VideoID     string  `json:"video_id"`
	ChunkIndex  int     `json:"chunk_index"`
	StartTime   float64 `json:"start_time"`
	TotalChunks int     `json:"total_chunks"`
}

// Validate rejects payloads a retry cannot fix.
func (t RegisterTask) Validate() error {
	switch {
	case strings.TrimSpace(t.TaskID) == "":
		return services.Wrap(services.ErrValidation, "pipeline", "register task", "missing task id", nil)
	case strings.TrimSpace(t.ObjectKey) == "":
		return services.Wrap(services.ErrValidation, "pipeline", "register task", "missing object key", nil)
	case strings.TrimSpace(t.VideoID) == "":
		return services.Wrap(services.ErrValidation, "pipeline", "register task", "missing video id", nil)
	case t.ChunkIndex < 0:
		return services.Wrap(services.ErrValidation, "pipeline", "register task", "negative chunk index", nil)
	case t.TotalChunks <= 0:
		return services.Wrap(services.ErrValidation, "pipeline", "register task", "missing chunk total", nil)
	case t.StartTime < 0:
		return services.Wrap(services.ErrValidation, "pipeline", "register task", "negative start time", nil)
	}
	return nil
}

// VerifyTask is the payload of one verification chunk task.
type VerifyTask struct {
	TaskID      string  `json:"task_id"`
	ObjectKey   string  `json:"object_key"`
	SessionID   string  `json:"session_id"`
	VideoID     string  `json:"video_id"`
	ChunkIndex  int     `json:"chunk_index"`
	StartTime   float64 `json:"start_time"`
	TotalChunks int     `json:"total_chunks"`
}

// Validate rejects payloads a retry cannot fix.
func (t VerifyTask) Validate() error {
	switch {
	case strings.TrimSpace(t.TaskID) == "":
		return services.Wrap(services.ErrValidation, "pipeline", "verify task", "missing task id", nil)
	case strings.TrimSpace(t.ObjectKey) == "":
		return services.Wrap(services.ErrValidation, "pipeline", "verify task", "missing object key", nil)
	case strings.TrimSpace(t.SessionID) == "":
		return services.Wrap(services.ErrValidation, "pipeline", "verify task", "missing session id", nil)
	case strings.TrimSpace(t.VideoID) == "":
		return services.Wrap(services.ErrValidation, "pipeline", "verify task", "missing video id", nil)
	case t.ChunkIndex < 0:
		return services.Wrap(services.ErrValidation, "pipeline", "verify task", "negative chunk index", nil)
	case t.TotalChunks <= 0:
		return services.Wrap(services.ErrValidation, "pipeline", "verify task", "missing chunk total", nil)
	case t.StartTime < 0:
		return services.Wrap(services.ErrValidation, "pipeline", "verify task", "negative start time", nil)
	}
	return nil
}
