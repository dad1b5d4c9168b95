package rekognition

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// FileImageSource feeds images from disk in filename order. It exists
// for local runs and demos; a deployment would stream stills from the
// capture client instead.
type FileImageSource struct {
	paths []string
	next  int
}

// NewFileImageSource lists the jpg/jpeg/png files under dir, sorted by
// name.
func NewFileImageSource(dir string) (*FileImageSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}

	return &FileImageSource{paths: paths}, nil
}

// NextImage returns the next file's bytes, or io.EOF after the last one.
func (s *FileImageSource) NextImage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.paths) {
		return nil, io.EOF
	}

	data, err := os.ReadFile(s.paths[s.next])
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	s.next++
	return data, nil
}
