// Package storage persists uploaded post media.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for names that would escape the store root.
var ErrInvalidName = errors.New("invalid object name")

// ContentStore holds uploaded files by name. Implementations are safe for
// concurrent use.
type ContentStore interface {
	// Save writes r under name and returns the stored name.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	// Delete removes name. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
	// Exists reports whether name is stored.
	Exists(ctx context.Context, name string) (bool, error)
}

const maxExtLen = 10

// NewObjectName builds a collision-resistant name of the form
// <unix millis>-<random>.<ext>, keeping the original extension when it is sane.
func NewObjectName(original string, now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	name := fmt.Sprintf("%d-%s", now.UnixMilli(), random)
	if ext := sanitizeExt(filepath.Ext(original)); ext != "" {
		name += ext
	}
	return name
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}

// validateName accepts only a single relative path element.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
