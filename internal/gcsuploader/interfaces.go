package gcsuploader

import (
	"context"

	"github.com/dvloznov/trading-analyzer/internal/gcs"
)

// GCSStorageService implements gcs.StorageService against Google Cloud
// Storage using Application Default Credentials.
type GCSStorageService struct {
	maxBytes int64
}

var _ gcs.StorageService = (*GCSStorageService)(nil)

// NewGCSStorageService creates a storage service whose downloads stop
// just past maxBytes.
func NewGCSStorageService(maxBytes int64) *GCSStorageService {
	return &GCSStorageService{maxBytes: maxBytes}
}

// UploadFile delegates to the package-level UploadFile function.
func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFile(ctx, bucketName, objectName, filePath)
}

// FetchFromGCS delegates to the package-level FetchFromGCS function.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, gcsURI, s.maxBytes)
}

// ListExports delegates to the package-level ListExports function.
func (s *GCSStorageService) ListExports(ctx context.Context, prefixURI string) ([]string, error) {
	return ListExports(ctx, prefixURI)
}

// ExtractFilenameFromGCSURI delegates to the package-level function.
func (s *GCSStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}
