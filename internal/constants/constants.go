// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Upload constants
const (
	// MaxUploadSize is the maximum accepted size of an uploaded image (32 MB)
	MaxUploadSize = 32 << 20

	// MultipartImageField is the form field carrying an uploaded image
	MultipartImageField = "file"
)

// Search constants
const (
	// DefaultNearestLimit is the number of neighbours returned by a sample search
	DefaultNearestLimit = 10

	// MaxNearestLimit caps the number of neighbours a single search may request
	MaxNearestLimit = 100
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for enrollment
	WorkerPoolSize = 4
)

// Tracker constants
const (
	// MaxTrackers is the maximum number of live tracking sessions on the server
	MaxTrackers = 256
)
