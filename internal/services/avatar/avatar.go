package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"

	"auth_service/internal/lib/logger/sl"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	ErrNoFile       = errors.New("avatar file is required")
	ErrFileTooLarge = errors.New("avatar exceeds size limit")
	ErrInvalidImage = errors.New("avatar is not a supported image")
)

const (
	DefaultSize     = 128
	DefaultMaxBytes = 5 << 20
)

var contentTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

// BlobStore persists avatar objects under opaque keys.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type Service struct {
	log      *slog.Logger
	store    BlobStore
	size     int
	maxBytes int64
}

func New(log *slog.Logger, store BlobStore, size int, maxBytes int64) *Service {
	if size <= 0 {
		size = DefaultSize
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Service{
		log:      log,
		store:    store,
		size:     size,
		maxBytes: maxBytes,
	}
}

// Ingest normalizes the uploaded image to a size x size square and stores it
// under a random key that keeps the upload's extension. It returns the key.
func (s *Service) Ingest(ctx context.Context, file *multipart.FileHeader) (string, error) {
	const op = "avatar.Ingest"

	if file == nil {
		return "", fmt.Errorf("%s: %w", op, ErrNoFile)
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("filename", file.Filename),
		slog.Int64("size", file.Size),
	)

	if file.Size > s.maxBytes {
		log.Warn("avatar too large")

		return "", fmt.Errorf("%s: %w", op, ErrFileTooLarge)
	}

	src, err := file.Open()
	if err != nil {
		log.Error("failed to open upload", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer src.Close()

	img, err := imaging.Decode(io.LimitReader(src, s.maxBytes), imaging.AutoOrientation(true))
	if err != nil {
		log.Warn("failed to decode avatar", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, ErrInvalidImage)
	}

	format, ext := outputFormat(file.Filename)
	resized := imaging.Fill(img, s.size, s.size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		log.Error("failed to encode avatar", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := uuid.NewString() + ext

	if err := s.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), contentTypes[format]); err != nil {
		log.Error("failed to store avatar", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("avatar stored", slog.String("key", key))

	return key, nil
}

// Remove deletes a previously ingested avatar.
func (s *Service) Remove(ctx context.Context, key string) error {
	const op = "avatar.Remove"

	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Error("failed to delete avatar", slog.String("op", op), slog.String("key", key), sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.store.URL(key)
}

// outputFormat picks the encoder from the upload's extension, falling back to PNG.
func outputFormat(filename string) (imaging.Format, string) {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return imaging.PNG, ".png"
	}

	return format, strings.ToLower(filepath.Ext(filename))
}
