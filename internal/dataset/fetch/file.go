package fetch

import (
	"context"
	"os"

	dErrors "sdnscreen/pkg/domain-errors"
)

// FileFetcher reads the dataset from the local filesystem. Used for
// local development and tests.
type FileFetcher struct {
	path string
}

func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

func (f *FileFetcher) Source() string {
	return f.path
}

func (f *FileFetcher) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeFetchFailed, "read dataset file")
	}
	return data, nil
}
