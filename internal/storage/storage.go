package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo represents metadata for a remote object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the S3-compatible operations the service needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

// PatternReader exposes an ObjectStorage as a flat key lister for pattern loading.
type PatternReader struct {
	Store ObjectStorage
}

func (r PatternReader) List(ctx context.Context, prefix string) ([]string, error) {
	objects, err := r.Store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	return keys, nil
}

func (r PatternReader) Get(ctx context.Context, key string) ([]byte, error) {
	return r.Store.GetObject(ctx, key)
}
