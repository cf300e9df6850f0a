// Package media stores uploaded documents and hands back their public URL.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	MaxPrescriptionSize = 10 << 20
	pdfMagic            = "%PDF-"
)

var (
	ErrTooLarge = errors.New("file exceeds the 10MB limit")
	ErrNotPDF   = errors.New("only PDF files are allowed")
)

type Store interface {
	// SavePDF stores r under folder and returns the URL the file is served at.
	SavePDF(ctx context.Context, folder string, r io.Reader) (string, error)
}

type diskStore struct {
	root    string
	baseURL string
}

// NewDiskStore keeps files under root; baseURL is the route they are served from.
func NewDiskStore(root, baseURL string) (Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &diskStore{root: root, baseURL: baseURL}, nil
}

func (s *diskStore) SavePDF(ctx context.Context, folder string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxPrescriptionSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxPrescriptionSize {
		return "", ErrTooLarge
	}
	if !bytes.HasPrefix(data, []byte(pdfMagic)) {
		return "", ErrNotPDF
	}

	dir := filepath.Join(s.root, filepath.Clean("/" + folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media folder: %w", err)
	}

	name := uuid.NewString() + ".pdf"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path.Join(s.baseURL, path.Clean("/"+folder), name), nil
}
