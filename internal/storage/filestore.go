// Package storage keeps uploaded audio recordings. A single FileStore backs both
// the static /uploads mount and the raw file endpoint.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("file not found")
	ErrInvalidKey = errors.New("invalid file name")
)

// FileInfo describes a stored object.
type FileInfo struct {
	Key         string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// FileStore stores, serves and removes uploaded binaries by key.
type FileStore interface {
	// Save stores r under a key derived from the upload time and originalName.
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error)
	Delete(ctx context.Context, key string) error
	// List returns keys last modified before olderThan.
	List(ctx context.Context, olderThan time.Time) ([]string, error)
}

// ValidateKey rejects keys that could escape the storage root. Separators are
// checked on the already-decoded name.
func ValidateKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return ErrInvalidKey
	case strings.ContainsAny(key, `/\`):
		return ErrInvalidKey
	case strings.ContainsRune(key, 0):
		return ErrInvalidKey
	}
	return nil
}

const maxNameLength = 100

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// generatedKey matches NewKey output, including the numeric prefix a
// store adds when a key is already taken.
var generatedKey = regexp.MustCompile(`^\d+-[A-Za-z0-9._-]+$`)

// IsGeneratedKey reports whether key has the shape NewKey produces.
func IsGeneratedKey(key string) bool {
	return generatedKey.MatchString(key)
}

// NewKey builds "<unix millis>-<sanitized name>".
func NewKey(now time.Time, originalName string) string {
	name := filepath.Base(strings.ReplaceAll(originalName, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "audio"
	}
	if len(name) > maxNameLength {
		name = name[len(name)-maxNameLength:]
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), name)
}

// ContentType guesses the media type from the key extension.
func ContentType(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	switch ext {
	case ".webm":
		return "audio/webm"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
