package files

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProgressFunc reports upload progress as written/total bytes. Uploads run
// sequentially, one file at a time, so progress is unambiguous per file.
type ProgressFunc func(written, total int64)

// UploadResult describes where a stored file ended up.
type UploadResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Path    string `json:"path"`
	Name    string `json:"name"`
}

// FileStorage stores and removes request attachments.
type FileStorage interface {
	Upload(ctx context.Context, ownerID uuid.UUID, name, documentType string, data []byte, onProgress ProgressFunc) (*UploadResult, error)
	Delete(ctx context.Context, ownerID uuid.UUID, storedName string) error
}

// LocalStorage keeps attachments on the local filesystem under one directory
// per owning request.
type LocalStorage struct {
	rootDir string
	baseURL string
	log     *zap.Logger
}

func NewLocalStorage(rootDir, baseURL string, log *zap.Logger) *LocalStorage {
	return &LocalStorage{rootDir: rootDir, baseURL: baseURL, log: log}
}

func (s *LocalStorage) Upload(ctx context.Context, ownerID uuid.UUID, name, documentType string, data []byte, onProgress ProgressFunc) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.rootDir, ownerID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	storedName := fmt.Sprintf("%s_%s", documentType, filepath.Base(name))
	path := filepath.Join(dir, storedName)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	writer := io.Writer(f)
	if onProgress != nil {
		writer = &progressWriter{w: f, total: int64(len(data)), report: onProgress}
	}

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write upload file: %w", err)
	}

	s.log.Debug("stored attachment",
		zap.String("owner_id", ownerID.String()),
		zap.String("name", storedName),
		zap.Int("size", len(data)),
	)

	return &UploadResult{
		Success: true,
		URL:     fmt.Sprintf("%s/%s/%s", s.baseURL, ownerID.String(), storedName),
		Path:    path,
		Name:    storedName,
	}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, ownerID uuid.UUID, storedName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.rootDir, ownerID.String(), filepath.Base(storedName))
	return os.Remove(path)
}

type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	report  ProgressFunc
}

func (p *progressWriter) Write(data []byte) (int, error) {
	n, err := p.w.Write(data)
	p.written += int64(n)
	p.report(p.written, p.total)
	return n, err
}
