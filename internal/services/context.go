package services

import "context"

type contextKey string

const (
	jobIDKey      contextKey = "job_id"
	chunkIndexKey contextKey = "chunk_index"
	taskIDKey     contextKey = "task_id"
	workflowKey   contextKey = "workflow"
)

// WithJobID attaches a job (reference video or verify session) identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier when present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(jobIDKey).(string)
	return id, ok && id != ""
}

// WithChunkIndex attaches the chunk index of the current unit of work.
func WithChunkIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, chunkIndexKey, index)
}

// ChunkIndexFromContext extracts the chunk index when present.
func ChunkIndexFromContext(ctx context.Context) (int, bool) {
	index, ok := ctx.Value(chunkIndexKey).(int)
	return index, ok
}

// WithTaskID attaches the dispatcher task identifier.
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey, id)
}

// TaskIDFromContext extracts the task identifier when present.
func TaskIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(taskIDKey).(string)
	return id, ok && id != ""
}

// WithWorkflow attaches the workflow kind (register or verify).
func WithWorkflow(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, workflowKey, kind)
}

// WorkflowFromContext extracts the workflow kind when present.
func WorkflowFromContext(ctx context.Context) (string, bool) {
	kind, ok := ctx.Value(workflowKey).(string)
	return kind, ok && kind != ""
}
