package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore persists uploaded artifacts and returns an opaque path to retrieve them.
type BlobStore interface {
	Save(ctx context.Context, folder string, data []byte, suggestedName string) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename strips directory components and characters outside [A-Za-z0-9._-].
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// objectKey builds folder/<unix>_<short-uuid>_<name> so concurrent uploads with
// the same name never overwrite each other.
func objectKey(folder, suggestedName string, now time.Time) string {
	name := fmt.Sprintf("%d_%s_%s", now.Unix(), uuid.NewString()[:8], SanitizeFilename(suggestedName))
	folder = strings.Trim(SanitizeFolder(folder), "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// SanitizeFolder keeps a relative, traversal-free folder path.
func SanitizeFolder(folder string) string {
	parts := strings.Split(strings.ReplaceAll(folder, "\\", "/"), "/")
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		clean = append(clean, SanitizeFilename(p))
	}
	return strings.Join(clean, "/")
}
