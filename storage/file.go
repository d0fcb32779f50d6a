package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dvd-rw/dvdrw/closer"
	"github.com/dvd-rw/dvdrw/o11y"
)

// FileStore keeps cassettes on the local filesystem. Locations are file paths, relative
// ones are resolved against Dir.
type FileStore struct {
	Dir string
}

func (s FileStore) path(location string) string {
	if filepath.IsAbs(location) || s.Dir == "" {
		return location
	}
	return filepath.Join(s.Dir, location)
}

func (s FileStore) Get(ctx context.Context, location string) (_ []byte, err error) {
	_, span := o11y.StartSpan(ctx, "storage: file get")
	defer o11y.End(span, &err)
	p := s.path(location)
	span.AddField("path", p)

	//#nosec:G304 // reading cassettes from caller supplied paths is the point
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, err
	}
	span.AddField("bytes", len(data))
	return data, nil
}

// Put writes the data to a temporary file next to the target and renames it into place,
// so a reader never sees a partially written cassette.
func (s FileStore) Put(ctx context.Context, location string, data []byte) (err error) {
	_, span := o11y.StartSpan(ctx, "storage: file put")
	defer o11y.End(span, &err)
	p := s.path(location)
	span.AddField("path", p)
	span.AddField("bytes", len(data))

	dir := filepath.Dir(p)
	err = os.MkdirAll(dir, 0755) // #nosec - cassettes are test fixtures
	if err != nil {
		return fmt.Errorf("could not create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	err = write(tmp, data)
	if err != nil {
		return fmt.Errorf("could not write file %q: %w", p, err)
	}
	return os.Rename(tmp.Name(), p)
}

func write(f *os.File, data []byte) (err error) {
	defer closer.ErrorHandler(f, &err)
	_, err = f.Write(data)
	return err
}
