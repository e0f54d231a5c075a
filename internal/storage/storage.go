package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ImageStorage serves exercise images from object storage.
type ImageStorage interface {
	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}
