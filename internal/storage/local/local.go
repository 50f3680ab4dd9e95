package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dev-tams/blobsweep/internal/storage/blob"
)

const urlScheme = "file://"

// Storage exposes a directory tree as an object store. Keys are slash
// separated paths relative to the base directory; empty directories appear as
// zero-byte "dir/" markers.
type Storage struct {
	name     string
	base     string
	pageSize int
}

func New(name, basePath string, pageSize int) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Storage{name: name, base: abs, pageSize: pageSize}, nil
}

func (s *Storage) Name() string { return s.name }

func (s *Storage) BasePath() string { return s.base }

func (s *Storage) List(ctx context.Context, prefix, cursor string) (blob.Page, error) {
	// Walk from the deepest directory the prefix names.
	dirPart := ""
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dirPart = prefix[:i]
	}
	root := filepath.Join(s.base, filepath.FromSlash(dirPart))

	var objects []blob.Object
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return fs.SkipDir
			}
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if p == s.base {
			return nil
		}

		rel, err := filepath.Rel(s.base, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)

		if d.IsDir() {
			empty, err := isEmptyDir(p)
			if err != nil {
				return err
			}
			if !empty {
				return nil
			}
			key += "/"
		} else if filepath.Ext(d.Name()) == ".tmp" {
			// Partial writes are not objects yet.
			return nil
		}

		if !strings.HasPrefix(key, prefix) || key <= cursor {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		size := info.Size()
		if d.IsDir() {
			size = 0
		}
		objects = append(objects, blob.Object{
			Key:        key,
			URL:        urlScheme + filepath.ToSlash(p),
			Size:       size,
			UploadedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return blob.Page{}, fmt.Errorf("list dir: %w", err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	var page blob.Page
	if len(objects) > s.pageSize {
		objects = objects[:s.pageSize]
		page.NextCursor = objects[len(objects)-1].Key
	}
	page.Objects = objects
	return page, nil
}

func (s *Storage) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, urlScheme) {
		return fmt.Errorf("local: unsupported url %q", url)
	}
	p := filepath.FromSlash(strings.TrimPrefix(url, urlScheme))
	if !within(s.base, p) {
		return fmt.Errorf("local: %s is outside %s", p, s.base)
	}

	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete %s: %w", path.Base(filepath.ToSlash(p)), blob.ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

func within(base, p string) bool {
	rel, err := filepath.Rel(base, filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isEmptyDir(p string) (bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return false, err
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	if len(names) > 0 {
		return false, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return true, nil
}
