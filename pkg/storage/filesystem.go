package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrFileTooLarge is returned when a stream exceeds the caller supplied limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
	// ErrInvalidFilename is returned when nothing usable remains after sanitising.
	ErrInvalidFilename = errors.New("invalid file name")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// LocalStorage persists files on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveStream copies at most maxBytes from r into filename under the base dir.
// A partially written file is removed when the limit is hit.
func (s *LocalStorage) SaveStream(filename string, r io.Reader, maxBytes int64) (string, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload stream: %w", copyErr)
	case maxBytes > 0 && written > maxBytes:
		_ = os.Remove(path)
		return "", ErrFileTooLarge
	case closeErr != nil:
		return "", fmt.Errorf("close upload file: %w", closeErr)
	}
	return filepath.ToSlash(filepath.Join(s.baseDir, filepath.Base(path))), nil
}

// SanitizeFilename strips directories and replaces characters outside [A-Za-z0-9._-].
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.TrimLeft(base, ".")
	if base == "" || base == "_" {
		return "", ErrInvalidFilename
	}
	return base, nil
}

func (s *LocalStorage) resolve(filename string) (string, error) {
	clean, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, clean), nil
}
