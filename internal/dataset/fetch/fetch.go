// Package fetch retrieves raw dataset bytes from a configured source.
// Each Fetcher makes a single bounded attempt per call; retry and
// backoff policy belongs to the cache layer.
package fetch

import (
	"context"
	"strings"
	"time"

	dErrors "sdnscreen/pkg/domain-errors"
)

// Fetcher retrieves the raw dataset bytes from one source location.
type Fetcher interface {
	// Fetch performs one outbound read. It applies a bounded timeout so
	// a hung upstream cannot block a refresh indefinitely.
	Fetch(ctx context.Context) ([]byte, error)

	// Source returns the location string, used as snapshot metadata.
	Source() string
}

// New builds a Fetcher for the given source kind and location.
// Supported kinds: http, file, gcs, s3. GCS locations use the form
// gs://bucket/object, S3 locations s3://bucket/key.
func New(ctx context.Context, kind, location string, opts Options) (Fetcher, error) {
	switch kind {
	case "http", "":
		return NewHTTPFetcher(location, opts), nil
	case "file":
		return NewFileFetcher(location), nil
	case "gcs":
		bucket, object, err := splitBucketLocation(location, "gs://")
		if err != nil {
			return nil, err
		}
		return NewGCSFetcher(ctx, bucket, object, opts)
	case "s3":
		bucket, key, err := splitBucketLocation(location, "s3://")
		if err != nil {
			return nil, err
		}
		return NewS3Fetcher(ctx, bucket, key, opts)
	default:
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown source kind %q", kind)
	}
}

// Options carries fetch tuning shared across backends.
type Options struct {
	// Timeout bounds a single fetch attempt. Zero falls back to
	// DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout matches the upstream source's worst observed
// response times for the full CSV export.
const DefaultTimeout = 30 * time.Second

// fetchContext bounds one fetch attempt with a deadline. Backends
// whose SDK clients carry no request timeout of their own wrap their
// context with this so an object read cannot hang a refresh.
func fetchContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func splitBucketLocation(location, scheme string) (bucket, path string, err error) {
	trimmed := strings.TrimPrefix(location, scheme)
	if trimmed == location {
		return "", "", dErrors.Newf(dErrors.CodeBadRequest, "source location must start with %s", scheme)
	}
	bucket, path, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || path == "" {
		return "", "", dErrors.Newf(dErrors.CodeBadRequest, "source location %q missing bucket or object", location)
	}
	return bucket, path, nil
}
