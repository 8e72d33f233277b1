// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Worker constants
const (
	// DefaultConcurrency is the default number of parallel embedding workers
	DefaultConcurrency = 4
)

// Request size constants
const (
	// MaxUploadSize is the maximum registration photo upload size in bytes (16MB)
	MaxUploadSize = 16 << 20

	// MaxMarkBodySize bounds the JSON body of a mark request. Camera frames
	// arrive base64 encoded, a third larger than the image.
	MaxMarkBodySize = 12 << 20

	// MaxJSONBodySize bounds small JSON bodies such as login and delete
	MaxJSONBodySize = 4 << 10
)

// Server timing constants
const (
	// RequestTimeout caps a single request including face extraction
	RequestTimeout = 2 * time.Minute

	// ShutdownTimeout is the graceful shutdown budget
	ShutdownTimeout = 30 * time.Second
)
