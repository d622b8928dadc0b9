// Package pipeline implements the chunk processing workflows. Registration
// fingerprints a reference video chunk by chunk; verification scores query
// chunks against a registered reference. Both share the same shape: fetch
// the chunk object, run the media tools, record the result, and let the
// store's atomic completion counter decide which worker finalizes the job.
package pipeline
