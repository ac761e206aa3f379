package fetch

import (
	"context"
	"io"
	"time"

	"cloud.google.com/go/storage"

	dErrors "sdnscreen/pkg/domain-errors"
)

// GCSFetcher reads the dataset from a Google Cloud Storage object.
type GCSFetcher struct {
	client  *storage.Client
	bucket  string
	object  string
	timeout time.Duration
}

// NewGCSFetcher creates a fetcher for gs://bucket/object. The storage
// client is created once and reused across refreshes.
func NewGCSFetcher(ctx context.Context, bucket, object string, opts Options) (*GCSFetcher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFetchFailed, "create gcs client")
	}
	return &GCSFetcher{client: client, bucket: bucket, object: object, timeout: opts.Timeout}, nil
}

func (f *GCSFetcher) Source() string {
	return "gs://" + f.bucket + "/" + f.object
}

// Fetch reads the whole object under a deadline. The storage client
// has no request timeout of its own.
func (f *GCSFetcher) Fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := fetchContext(ctx, f.timeout)
	defer cancel()

	reader, err := f.client.Bucket(f.bucket).Object(f.object).NewReader(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFetchFailed, "open gcs object")
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFetchFailed, "read gcs object")
	}
	return data, nil
}
