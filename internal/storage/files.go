package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	messagesSubdir = "messages"
	avatarsSubdir  = "avatars"
)

// FileStore пишет загруженные файлы на локальный диск и отдаёт публичные URL.
// Broadcast-у гейтвея всё равно, где лежит blob — наружу уходит только file_url.
type FileStore struct {
	dir     string
	baseURL string
}

func NewFileStore(dir, baseURL string) (*FileStore, error) {
	for _, sub := range []string{messagesSubdir, avatarsSubdir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir uploads: %w", err)
		}
	}
	return &FileStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir возвращает корень файлового хранилища (для статической раздачи).
func (s *FileStore) Dir() string { return s.dir }

// SaveAttachment сохраняет вложение сообщения.
// declaredType может быть пустым — тогда тип определяется по содержимому.
func (s *FileStore) SaveAttachment(data []byte, name, declaredType string) (fileURL, fileType string, err error) {
	return s.save(messagesSubdir, "attachment", data, name, declaredType)
}

// SaveAvatar сохраняет аватар пользователя.
func (s *FileStore) SaveAvatar(data []byte, name, declaredType string) (fileURL, fileType string, err error) {
	return s.save(avatarsSubdir, "avatar", data, name, declaredType)
}

func (s *FileStore) save(subdir, prefix string, data []byte, name, declaredType string) (string, string, error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("empty file payload")
	}

	detected := mimetype.Detect(data)
	fileType := declaredType
	if fileType == "" {
		fileType = detected.String()
	}

	ext := detected.Extension()
	if ext == "" {
		if e := filepath.Ext(name); e != "" {
			ext = e
		} else {
			ext = ".bin"
		}
	}

	filename := fmt.Sprintf("%s-%d-%s%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8], ext)
	path := filepath.Join(s.dir, subdir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", path, err)
	}

	url := fmt.Sprintf("%s/uploads/%s/%s", s.baseURL, subdir, filename)
	return url, fileType, nil
}
