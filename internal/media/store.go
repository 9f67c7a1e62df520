package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"socialfeed/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const sniffBytes = 512

var (
	ErrTooManyUploads = errors.New("Too many concurrent uploads. Please retry shortly")
	ErrTooLarge       = errors.New("File is too large")
	ErrNotImage       = errors.New("Only images are allowed")
	ErrEmpty          = errors.New("File is empty")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// Stored describes a saved image.
type Stored struct {
	Name     string
	Size     int64
	MimeType string
}

// Store writes post images into a single directory served statically.
type Store struct {
	dir       string
	urlPrefix string
	maxBytes  int64
	slots     chan struct{}
}

func NewStore(cfg config.UploadConfig) (*Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	parallel := cfg.MaxParallel
	if parallel <= 0 {
		parallel = 1
	}
	prefix := "/" + strings.Trim(strings.TrimSpace(cfg.URLPrefix), "/")
	if prefix == "/" {
		prefix = "/uploads"
	}

	return &Store{
		dir:       dir,
		urlPrefix: prefix,
		maxBytes:  cfg.MaxSizeBytes,
		slots:     make(chan struct{}, parallel),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) URLPrefix() string {
	return s.urlPrefix
}

func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// URL returns the public path of a stored image name.
func (s *Store) URL(name string) string {
	return s.urlPrefix + "/" + name
}

func (s *Store) tryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Store) release() {
	select {
	case <-s.slots:
	default:
	}
}

// Save validates and stores an uploaded image under a random name. The
// returned error is one of the package sentinels for client faults.
func (s *Store) Save(header *multipart.FileHeader) (*Stored, error) {
	if !s.tryAcquire() {
		return nil, ErrTooManyUploads
	}
	defer s.release()

	if s.maxBytes > 0 && header.Size > s.maxBytes {
		return nil, ErrTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	return s.save(file)
}

func (s *Store) save(file io.ReadSeeker) (*Stored, error) {
	buffer := make([]byte, sniffBytes)
	bytesRead, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if bytesRead == 0 {
		return nil, ErrEmpty
	}

	mimeType := normalizeMimeType(mimetype.Detect(buffer[:bytesRead]).String())
	ext, ok := imageExtensions[mimeType]
	if !ok {
		return nil, ErrNotImage
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	tempFile, err := os.CreateTemp(s.dir, ".incoming-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		if tempPath != "" {
			_ = os.Remove(tempPath)
		}
	}()

	reader := io.Reader(file)
	if s.maxBytes > 0 {
		reader = io.LimitReader(file, s.maxBytes+1)
	}
	size, err := io.Copy(tempFile, reader)
	if err != nil {
		_ = tempFile.Close()
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, ErrTooLarge
	}

	name := uuid.NewString() + ext
	if err := os.Rename(tempPath, filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	tempPath = ""

	return &Stored{Name: name, Size: size, MimeType: mimeType}, nil
}

// IsClientError reports whether err was caused by the uploaded content.
func IsClientError(err error) bool {
	return errors.Is(err, ErrTooManyUploads) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrNotImage) ||
		errors.Is(err, ErrEmpty)
}

func normalizeMimeType(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if separator := strings.Index(normalized, ";"); separator >= 0 {
		normalized = strings.TrimSpace(normalized[:separator])
	}
	return normalized
}
