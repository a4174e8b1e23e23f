package gcsuploader

import (
	"testing"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://exports/2024/futures.xlsx", "exports", "2024/futures.xlsx", false},
		{"gs://exports", "exports", "", false},
		{"gs://exports/", "exports", "", false},
		{"s3://exports/a.csv", "", "", true},
		{"gs:///a.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseURI(%q) = %q, %q, want %q, %q", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/futures.xlsx", "futures.xlsx"},
		{"gs://bucket/spot.csv", "spot.csv"},
		{"gs://bucket", "bucket"},
	}

	for _, tt := range tests {
		if got := ExtractFilenameFromGCSURI(tt.uri); got != tt.want {
			t.Errorf("ExtractFilenameFromGCSURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestExportURIs(t *testing.T) {
	names := []string{"exports/spot.csv", "exports/readme.md", "exports/futures.xlsx", "exports/old.xls", "exports/"}

	got := ExportURIs("bucket", names)

	want := []string{
		"gs://bucket/exports/futures.xlsx",
		"gs://bucket/exports/old.xls",
		"gs://bucket/exports/spot.csv",
	}
	if len(got) != len(want) {
		t.Fatalf("ExportURIs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ExportURIs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("a.CSV"); got != "text/csv" {
		t.Errorf("ContentType(a.CSV) = %q", got)
	}
	if got := ContentType("a.bin"); got != "application/octet-stream" {
		t.Errorf("ContentType(a.bin) = %q", got)
	}
}
