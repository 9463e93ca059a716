// Package media stores uploaded video and audio payloads and resolves the
// references kept on feedback records into URLs clients can fetch.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Prefix starts every media reference. It doubles as the public path the
// local backend is served under.
const Prefix = "uploads"

// ErrInvalidRef is returned for references that do not point inside the store.
var ErrInvalidRef = errors.New("invalid media reference")

// Store is a media backend.
type Store interface {
	// Save streams r into the store under a fresh name derived from
	// original and returns the reference to persist.
	Save(ctx context.Context, original string, r io.Reader) (string, error)
	// Exists reports whether ref currently resolves to stored media.
	Exists(ctx context.Context, ref string) (bool, error)
	// Remove deletes ref. Removing something already gone is not an error.
	Remove(ctx context.Context, ref string) error
	// URL returns an absolute URL for ref.
	URL(ctx context.Context, ref string) (string, error)
}

var now = time.Now

// NewName builds "<unix-millis>-<sanitized base name>".
func NewName(original string, t time.Time) string {
	return fmt.Sprintf("%d-%s", t.UnixMilli(), sanitize(original))
}

func sanitize(original string) string {
	base := path.Base(strings.ReplaceAll(original, `\`, "/"))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		return "file"
	}
	return name
}

// refName validates ref and returns the object name after the prefix.
func refName(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, Prefix+"/")
	if !ok || name == "" || strings.Contains(name, "/") || strings.Contains(name, `\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return name, nil
}
