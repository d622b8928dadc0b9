// Package mediastore moves chunk media between the object store and local
// scratch space. The daemon downloads each task's chunk object to a
// temporary file before running the media tools against it.
package mediastore
