// Package storage abstracts the object store holding shared documents such
// as schema descriptions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectTooLarge = errors.New("object exceeds size limit")
)

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

type ObjectSource interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

type ObjectPublisher interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (ObjectInfo, error)
}

// ReadAll fetches key and returns its body. Objects larger than limit bytes
// are rejected with ErrObjectTooLarge; limit <= 0 disables the check.
func ReadAll(ctx context.Context, source ObjectSource, key string, limit int64) ([]byte, ObjectInfo, error) {
	info, err := source.Stat(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	if limit > 0 && info.Size > limit {
		return nil, info, fmt.Errorf("%w: %q is %d bytes (limit %d)", ErrObjectTooLarge, key, info.Size, limit)
	}

	reader, err := source.Get(ctx, key)
	if err != nil {
		return nil, info, err
	}
	defer func() { _ = reader.Close() }()

	var body []byte
	if limit > 0 {
		body, err = io.ReadAll(io.LimitReader(reader, limit+1))
	} else {
		body, err = io.ReadAll(reader)
	}
	if err != nil {
		return nil, info, fmt.Errorf("read object %q: %w", key, err)
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, info, fmt.Errorf("%w: %q", ErrObjectTooLarge, key)
	}
	return body, info, nil
}
