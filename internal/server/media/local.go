package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/feedbackd/internal/filex"
)

// maxNameAttempts bounds the retries when two uploads land on the same name.
const maxNameAttempts = 5

// LocalStore keeps media as files in a single directory.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates dir if needed. baseURL is the public origin the
// directory is served from, e.g. "http://localhost:3005".
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{dir: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the absolute directory backing the store.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, original string, r io.Reader) (string, error) {
	t := now()

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		name := NewName(original, t)
		p := filepath.Join(s.dir, name)

		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if errors.Is(err, fs.ErrExist) {
			t = t.Add(time.Millisecond)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", name, err)
		}

		if _, err := io.Copy(f, r); err != nil {
			_ = f.Close()
			_ = os.Remove(p)
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(p)
			return "", fmt.Errorf("close %s: %w", name, err)
		}

		return Prefix + "/" + name, nil
	}

	return "", fmt.Errorf("no free name for %q", original)
}

func (s *LocalStore) Exists(ctx context.Context, ref string) (bool, error) {
	name, err := refName(ref)
	if err != nil {
		return false, nil
	}
	return filex.Exists(filepath.Join(s.dir, name))
}

func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	name, err := refName(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(ctx context.Context, ref string) (string, error) {
	return s.baseURL + "/" + ref, nil
}
