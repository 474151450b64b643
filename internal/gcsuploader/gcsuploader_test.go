package gcsuploader

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://receipts/u1/r1/lunch.jpg", "receipts", "u1/r1/lunch.jpg", false},
		{"gs://bucket/file.pdf", "bucket", "file.pdf", false},
		{"https://example.com/file.pdf", "", "", true},
		{"gs://bucket-only", "", "", true},
		{"gs:///object", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.bucket, bucket)
			require.Equal(t, tt.object, object)
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	require.Equal(t, "lunch.jpg", ExtractFilenameFromGCSURI("gs://b/receipts/u/1/lunch.jpg"))
	require.Equal(t, "b", ExtractFilenameFromGCSURI("gs://b"))
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	url, err := m.Put(ctx, "receipts/u1/r1/lunch.jpg", "image/jpeg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	require.Equal(t, "https://mock-storage.com/receipts/u1/r1/lunch.jpg", url)

	data, err := m.Get(ctx, url)
	require.NoError(t, err)
	require.Equal(t, "jpeg bytes", string(data))

	_, err = m.Get(ctx, MockBaseURL+"missing")
	require.Error(t, err)
}
