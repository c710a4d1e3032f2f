package correction

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lilyanlefevre/formula-corrector/pkg/logger"
)

//go:embed default_corrections.txt
var defaultList string

const (
	appDirName      = ".massspec-corrector"
	libraryFileName = "corrections.txt"
)

// Repository stores the correction library.
type Repository interface {
	List(ctx context.Context) ([]Correction, error)
	Save(ctx context.Context, list []Correction) error
}

// Defaults returns the bundled correction library. Its '#' annotations are
// not part of the list.
func Defaults() []Correction {
	lines := strings.Split(strings.TrimSpace(defaultList), "\n")
	out := make([]Correction, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, Parse(line))
	}
	return out
}

// DefaultPath returns the per-user library location,
// ~/.massspec-corrector/corrections.txt.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, appDirName, libraryFileName), nil
}

// FileRepository keeps the library in a plain-text file. The file is created
// from the bundled defaults the first time the repository is opened.
type FileRepository struct {
	path   string
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewFileRepository opens (and if needed bootstraps) the library at path.
// An empty path selects DefaultPath.
func NewFileRepository(path string) (*FileRepository, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	r := &FileRepository{
		path:   path,
		logger: logger.WithComponent("correction-repository").With("path", path),
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := r.write(Defaults()); err != nil {
			return nil, fmt.Errorf("bootstrapping default corrections: %w", err)
		}
		r.logger.Info("correction library bootstrapped from defaults")
	} else if err != nil {
		return nil, fmt.Errorf("checking library file: %w", err)
	}
	return r, nil
}

// Path returns the library file location.
func (r *FileRepository) Path() string {
	return r.path
}

// List reads the library. On failure the list is empty.
func (r *FileRepository) List(ctx context.Context) ([]Correction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list, err := LoadFile(r.path)
	if err != nil {
		r.logger.Error("failed to read corrections", "error", err)
		return []Correction{}, err
	}
	return list, nil
}

// Save replaces the library contents.
func (r *FileRepository) Save(ctx context.Context, list []Correction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.write(list); err != nil {
		r.logger.Error("failed to save corrections", "error", err)
		return err
	}
	r.logger.Info("correction library saved", "count", len(list))
	return nil
}

// Add appends corrections not already present and returns the new library.
func (r *FileRepository) Add(ctx context.Context, add ...Correction) ([]Correction, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	list = Dedupe(append(list, add...))
	if err := r.Save(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Remove deletes corrections by canonical name and reports how many were
// removed.
func (r *FileRepository) Remove(ctx context.Context, names ...string) ([]Correction, int, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := list[:0]
	for _, c := range list {
		if _, ok := drop[c.Name()]; ok {
			continue
		}
		kept = append(kept, c)
	}
	removed := len(list) - len(kept)
	if err := r.Save(ctx, kept); err != nil {
		return nil, 0, err
	}
	return kept, removed, nil
}

// Reset restores the bundled defaults.
func (r *FileRepository) Reset(ctx context.Context) ([]Correction, error) {
	list := Defaults()
	if err := r.Save(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// write replaces the file atomically. Callers hold the write lock or own r
// exclusively.
func (r *FileRepository) write(list []Correction) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), libraryFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(Format(list)); err != nil {
		tmp.Close()
		return fmt.Errorf("writing corrections: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replacing library file: %w", err)
	}
	return nil
}
