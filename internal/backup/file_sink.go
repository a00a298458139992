package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/2beens/notesbox/pkg"
)

type FileSink struct {
	dir string
}

func NewFileSink(dir string) (*FileSink, error) {
	exists, err := pkg.PathExists(dir, true)
	if err != nil {
		return nil, fmt.Errorf("check backup dir: %w", err)
	}
	if !exists {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create backup dir: %w", err)
		}
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Store(_ context.Context, name, _ string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
