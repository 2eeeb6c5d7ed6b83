// internal/catalog/dir.go
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Dir is a directory of card files sharing one extension.
type Dir struct {
	Path string
	Ext  string
}

// Files lists matching card files in lexical order.
func (d Dir) Files() ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), d.Ext) {
			continue
		}
		files = append(files, filepath.Join(d.Path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Load parses every card file using up to workers goroutines. Documents are
// returned in file order. A file that cannot be read or parsed is left out
// and its error is combined into the returned error; the other files are
// still loaded.
func (d Dir) Load(ctx context.Context, workers int) ([]*Document, error) {
	files, err := d.Files()
	if err != nil {
		return nil, err
	}

	docs := make([]*Document, len(files))
	var (
		mu   sync.Mutex
		errs error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range files {
		i, path := i, path // per-iteration copies (go.mod targets go 1.21)
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			doc, err := ParseFile(path)
			if err != nil {
				slog.Error("Failed to parse card file", "file", path, "error", err)
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := docs[:0]
	for _, doc := range docs {
		if doc != nil {
			loaded = append(loaded, doc)
		}
	}
	slog.Debug("Catalog loaded", "dir", d.Path, "files", len(files), "cards", len(loaded))
	return loaded, errs
}

// ParseFile reads and parses one card file.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, data)
}

// Save atomically replaces the document's file: the new content goes to a
// temporary file in the same directory which is then renamed over it.
func (d *Document) Save() error {
	perm := os.FileMode(0o644)
	if fi, err := os.Stat(d.Path); err == nil {
		perm = fi.Mode().Perm()
	}
	data := d.Bytes()
	if err := renameio.WriteFile(d.Path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", d.Path, err)
	}
	// the written text becomes the new baseline for Dirty and Bytes
	if fresh, err := Parse(d.Path, data); err == nil {
		d.tables = fresh.tables
		d.parsedIDs = fresh.parsedIDs
	}
	return nil
}
