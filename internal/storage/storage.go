package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage keeps uploaded source files. The handler depends on this interface only,
// so another backend is a change in main.go.
type Storage interface {
	Upload(file io.Reader, filename string, contentType string) (string, error)
	Remove(fileURL string) error
}

// LocalStorage writes uploads to UploadDir and serves them from BaseURL/uploads/.
type LocalStorage struct {
	UploadDir string
	BaseURL   string // e.g. "http://localhost:8083"
}

func NewLocalStorage(uploadDir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStorage{UploadDir: uploadDir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload stores file under a fresh uuid name that keeps only the original
// extension, and returns its public URL.
func (s *LocalStorage) Upload(file io.Reader, filename string, contentType string) (string, error) {
	safeFilename := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	filePath := filepath.Join(s.UploadDir, safeFilename)

	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(filePath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return fmt.Sprintf("%s/uploads/%s", s.BaseURL, safeFilename), nil
}

// Remove deletes a file previously returned by Upload. Unknown or foreign URLs
// are ignored.
func (s *LocalStorage) Remove(fileURL string) error {
	prefix := s.BaseURL + "/uploads/"
	if !strings.HasPrefix(fileURL, prefix) {
		return nil
	}
	name := path.Base(strings.TrimPrefix(fileURL, prefix))
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.UploadDir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}
