package media

import (
	"bytes"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"socialfeed/internal/config"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newTestStore(t *testing.T, maxBytes int64, parallel int) *Store {
	t.Helper()
	store, err := NewStore(config.UploadConfig{
		Path:         t.TempDir(),
		URLPrefix:    "/uploads/",
		MaxSizeBytes: maxBytes,
		MaxParallel:  parallel,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["image"][0]
}

func TestSaveStoresImageUnderRandomName(t *testing.T) {
	store := newTestStore(t, 1024, 2)

	stored, err := store.Save(fileHeader(t, "../../etc/passwd.png", pngHeader))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(stored.Name, ".png") || strings.Contains(stored.Name, "passwd") {
		t.Fatalf("unexpected stored name %q", stored.Name)
	}
	if stored.MimeType != "image/png" || stored.Size != int64(len(pngHeader)) {
		t.Fatalf("unexpected stored metadata %+v", stored)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), stored.Name))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(data, pngHeader) {
		t.Fatalf("stored content mismatch")
	}
	if got := store.URL(stored.Name); got != "/uploads/"+stored.Name {
		t.Fatalf("unexpected url %q", got)
	}

	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 1 {
		t.Fatalf("expected only the stored file, found %d entries", len(entries))
	}
}

func TestSaveRejectsNonImages(t *testing.T) {
	store := newTestStore(t, 1024, 1)

	_, err := store.Save(fileHeader(t, "photo.png", []byte("definitely not an image")))
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if !IsClientError(err) {
		t.Fatalf("expected a client error")
	}

	_, err = store.Save(fileHeader(t, "empty.png", nil))
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestSaveRejectsOversizedFiles(t *testing.T) {
	store := newTestStore(t, 16, 1)

	_, err := store.Save(fileHeader(t, "big.png", pngHeader))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 0 {
		t.Fatalf("rejected upload left %d files behind", len(entries))
	}
}

func TestSaveRefusesWhenSlotsAreTaken(t *testing.T) {
	store := newTestStore(t, 1024, 1)

	if !store.tryAcquire() {
		t.Fatalf("expected first slot to be free")
	}
	_, err := store.Save(fileHeader(t, "a.png", pngHeader))
	if !errors.Is(err, ErrTooManyUploads) {
		t.Fatalf("expected ErrTooManyUploads, got %v", err)
	}
	store.release()

	if _, err := store.Save(fileHeader(t, "a.png", pngHeader)); err != nil {
		t.Fatalf("Save after release: %v", err)
	}
}
