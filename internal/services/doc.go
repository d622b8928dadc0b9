// Package services holds helpers shared by pipeline collaborators: error
// classification sentinels, contextual error wrapping, and context keys that
// thread job, chunk, and task identity through a unit of work.
package services
