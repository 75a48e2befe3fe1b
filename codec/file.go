package codec

import (
	"fmt"
	"os"

	"github.com/Neumenon/collate/collate"
)

// WriteFile writes t to path, replacing any existing file.
func WriteFile(path string, t *collate.Table, opts ...Option) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return NewWriter(f, opts...).WriteTable(t)
}

// ReadFile reads the single table stored in path.
func ReadFile(path string, opts ...Option) (*collate.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	if fi.Size() > int64(o.maxBody)+64 {
		return nil, corrupt(-1, "file too large: %d bytes", fi.Size())
	}
	b := make([]byte, fi.Size())
	if _, err := f.ReadAt(b, 0); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(b, opts...)
}
