// Package store manages the destination file verified pieces are written
// into.
package store

import (
	"fmt"
	"os"
)

// OutputFile is a positional writer over an exclusively created destination
// file. Writes to disjoint offsets may happen from multiple workers; the
// caller serializes them.
type OutputFile struct {
	path string
	size int64
	f    *os.File
}

// CreateOutputFile exclusively creates the destination file and sizes it up
// front so positional writes land inside the allocation.
func CreateOutputFile(path string, size int64) (*OutputFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("size output file: %s", err)
	}
	return &OutputFile{
		path: path,
		size: size,
		f:    f,
	}, nil
}

// Name returns the path of the output file.
func (o *OutputFile) Name() string {
	return o.path
}

// Size returns the allocated size of the output file.
func (o *OutputFile) Size() int64 {
	return o.size
}

// WriteAt writes b at the given offset, which must land fully inside the
// allocation.
func (o *OutputFile) WriteAt(b []byte, offset int64) error {
	if offset < 0 || offset+int64(len(b)) > o.size {
		return fmt.Errorf(
			"write of %d bytes at offset %d outside of %d byte file",
			len(b), offset, o.size)
	}
	if _, err := o.f.WriteAt(b, offset); err != nil {
		return fmt.Errorf("write at %d: %s", offset, err)
	}
	return nil
}

// Close flushes and closes the underlying file. Idempotent.
func (o *OutputFile) Close() error {
	if o.f == nil {
		return nil
	}
	err := o.f.Close()
	o.f = nil
	return err
}
