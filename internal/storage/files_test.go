package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// PNG-заголовок, чтобы сработала детекция типа по содержимому
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestFileStore_SaveAttachment(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, "http://localhost:8080/")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	url, fileType, err := fs.SaveAttachment(pngHeader, "pic.png", "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/uploads/messages/") {
		t.Fatalf("unexpected url: %s", url)
	}
	if fileType != "image/png" {
		t.Fatalf("expected detected image/png, got %s", fileType)
	}

	// файл реально лежит на диске
	name := filepath.Base(url)
	if _, err := os.Stat(filepath.Join(dir, "messages", name)); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestFileStore_DeclaredTypeWins(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	_, fileType, err := fs.SaveAvatar(pngHeader, "avatar.png", "image/custom")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if fileType != "image/custom" {
		t.Fatalf("declared type must win, got %s", fileType)
	}
}

func TestFileStore_EmptyPayloadRejected(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if _, _, err := fs.SaveAttachment(nil, "x", ""); err == nil {
		t.Fatalf("empty payload must be rejected")
	}
}

func TestFileStore_UniqueFilenames(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	a, _, err := fs.SaveAttachment(pngHeader, "same.png", "")
	if err != nil {
		t.Fatalf("save a: %v", err)
	}
	b, _, err := fs.SaveAttachment(pngHeader, "same.png", "")
	if err != nil {
		t.Fatalf("save b: %v", err)
	}
	if a == b {
		t.Fatalf("two uploads of the same name must get distinct urls")
	}
}
