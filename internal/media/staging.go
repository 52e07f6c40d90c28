package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Staging keeps uploaded files on local disk until they are pushed to
// object storage.
type Staging struct {
	basePath string
}

// NewStaging returns a Staging rooted at basePath.
func NewStaging(basePath string) *Staging {
	return &Staging{basePath: basePath}
}

// Store copies r into a uniquely named file and returns its path. The
// original file name only contributes its extension.
func (s *Staging) Store(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}

	path := filepath.Join(s.basePath, uuid.NewString()+extension(originalName))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating staging file: %w", err)
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing staging file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing staging file: %w", err)
	}
	return path, nil
}

// Remove deletes a staged file. Missing files are not an error.
func (s *Staging) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting staging file: %w", err)
	}
	return nil
}

func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}
