// Package utils provides utility functions for the application.
package utils

type contextKey string

// EndpointKey carries the logical endpoint name on request contexts
const EndpointKey contextKey = "endpoint"

// RequestIDKey carries the request id assigned by the router
const RequestIDKey contextKey = "request_id"

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}
