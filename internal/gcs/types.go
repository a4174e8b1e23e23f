package gcs

import (
	"context"
)

// StorageService provides an interface for cloud storage operations on
// trading exports. This interface enables mocking and testing of storage
// functionality.
type StorageService interface {
	// UploadFile uploads a local export to a storage bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// FetchFromGCS downloads export bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// ListExports lists the spreadsheet URIs found under a storage prefix.
	ListExports(ctx context.Context, prefixURI string) ([]string, error)

	// ExtractFilenameFromGCSURI extracts the filename from a storage URI.
	ExtractFilenameFromGCSURI(uri string) string
}
