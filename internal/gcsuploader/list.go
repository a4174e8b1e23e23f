package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/trading-analyzer/internal/loader"
)

// ListExports returns the gs:// URIs of every supported spreadsheet under
// prefixURI ("gs://bucket/prefix"), sorted by name.
func ListExports(ctx context.Context, prefixURI string) ([]string, error) {
	bucketName, prefix, err := ParseURI(prefixURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListExports: create storage client: %w", err)
	}
	defer client.Close()

	var names []string
	it := client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListExports: iterate %s: %w", prefixURI, err)
		}
		names = append(names, attrs.Name)
	}

	return ExportURIs(bucketName, names), nil
}

// ExportURIs keeps the object names with a supported spreadsheet extension
// and turns them into sorted gs:// URIs.
func ExportURIs(bucketName string, names []string) []string {
	var uris []string
	for _, name := range names {
		if _, err := loader.DetectFormat(name); err != nil {
			continue
		}
		uris = append(uris, "gs://"+bucketName+"/"+name)
	}
	sort.Strings(uris)
	return uris
}
