// Package notifications delivers job outcome alerts over ntfy. When no
// topic is configured every notification is a no-op, so callers never need
// to guard their calls.
package notifications
