// Package storage declares the Store interface implemented by every
// medium an archive may be persisted to or fetched from.
package storage

import (
	"context"
	"io"
)

// Overwrite flags for Put
const (
	// OverWrite replaces any object already present under the key
	OverWrite = true

	// NoOverWrite fails the Put if the key already exists
	NoOverWrite = false
)

// Store implementations know how to read and write entries of a K/V model.
//
// Typically this is something file system-like. Examples are S3, GCS, local FS.
// Implementations of this interface are assumed to be fairly simple: keys are
// slash-separated relative paths, values are byte streams.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, bool) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	Clear(context.Context) error
}

// PipeIO copies a reader to a writer with a fixed-size buffer
func PipeIO(writer io.Writer, reader io.Reader) (n int64, err error) {
	buf := make([]byte, 32*1024)
	return io.CopyBuffer(writer, reader, buf)
}
