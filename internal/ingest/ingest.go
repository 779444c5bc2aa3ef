// Package ingest registers source files as queued documents: size, content
// hash and sniffed mime type are captured up front so the pipeline never has
// to trust a client-supplied content type.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/kelechi-nwosu/docpipeline/constants"
	"github.com/kelechi-nwosu/docpipeline/internal/common"
	"github.com/kelechi-nwosu/docpipeline/internal/entity"
	"github.com/kelechi-nwosu/docpipeline/internal/repository"
)

type Service struct {
	docs        repository.DocumentRepository
	logger      *slog.Logger
	allowedExts map[string]struct{} // lowercased sans '.'; nil -> default set
}

func NewService(docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

func (s *Service) allowed(ext string) bool {
	exts := s.allowedExts
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	_, ok := exts[ext]
	return ok
}

// RegisterPath records an on-disk file as a QUEUED document.
func (s *Service) RegisterPath(ctx context.Context, path string) (*entity.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	return s.register(ctx, abs, filepath.Base(abs))
}

func (s *Service) register(ctx context.Context, abs, displayName string) (*entity.Document, error) {
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !s.allowed(ext) {
		return nil, common.InvalidArgumentErrorf("unsupported or missing extension %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("ingest close error", "path", abs, "err", err)
		}
	}()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("hash source: %w", err)
	}

	mime, err := mimetype.DetectFile(abs)
	if err != nil {
		return nil, fmt.Errorf("detect mime: %w", err)
	}

	doc := &entity.Document{
		FileName:    displayName,
		FilePath:    abs,
		FileSize:    size,
		ContentType: mime.String(),
		ContentHash: hex.EncodeToString(h.Sum(nil)),
		Status:      constants.StatusQueued,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("document registered",
		"doc_id", doc.ID, "file_name", doc.FileName, "size", size, "mime", doc.ContentType)
	return doc, nil
}

// RegisterUpload stores an uploaded stream under dir and registers the saved
// file. The stream is capped at maxBytes.
func (s *Service) RegisterUpload(ctx context.Context, fileName string, r io.Reader, dir string, maxBytes int64) (*entity.Document, error) {
	base := sanitizeFileName(fileName)
	ext := constants.NormalizeExt(filepath.Ext(base))
	if ext == "" || !s.allowed(ext) {
		return nil, common.InvalidArgumentErrorf("unsupported or missing extension %q", ext)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	dest := filepath.Join(dir, uuid.New().String()+"-"+base)

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	limited := io.LimitReader(r, maxBytes+1)
	n, err := io.Copy(out, limited)
	closeErr := out.Close()
	if err != nil {
		_ = os.Remove(dest)
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return nil, fmt.Errorf("close upload: %w", closeErr)
	}
	if n > maxBytes {
		_ = os.Remove(dest)
		return nil, common.InvalidArgumentErrorf("upload exceeds limit of %d bytes", maxBytes)
	}

	// Keep the client's original name, not the de-duplicated disk name.
	doc, err := s.register(ctx, dest, base)
	if err != nil {
		_ = os.Remove(dest)
		return nil, err
	}
	return doc, nil
}

func sanitizeFileName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.ReplaceAll(base, "..", "")
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "upload.bin"
	}
	return base
}
