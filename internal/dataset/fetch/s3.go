package fetch

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	dErrors "sdnscreen/pkg/domain-errors"
)

// S3Fetcher reads the dataset from an Amazon S3 object.
type S3Fetcher struct {
	client  *s3.Client
	bucket  string
	key     string
	timeout time.Duration
}

// NewS3Fetcher creates a fetcher for s3://bucket/key using the default
// AWS credential chain.
func NewS3Fetcher(ctx context.Context, bucket, key string, opts Options) (*S3Fetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFetchFailed, "load aws config")
	}
	return &S3Fetcher{client: s3.NewFromConfig(cfg), bucket: bucket, key: key, timeout: opts.Timeout}, nil
}

func (f *S3Fetcher) Source() string {
	return "s3://" + f.bucket + "/" + f.key
}

// Fetch reads the whole object under a deadline so a hung download
// cannot stall a refresh.
func (f *S3Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := fetchContext(ctx, f.timeout)
	defer cancel()

	resp, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFetchFailed, "get s3 object")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFetchFailed, "read s3 object")
	}
	return data, nil
}
