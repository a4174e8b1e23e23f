package pipeline

import (
	"context"
)

// StorageService is the subset of cloud storage the pipeline reads exports
// through.
type StorageService interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
	ExtractFilenameFromGCSURI(uri string) string
}
