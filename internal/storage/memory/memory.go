// Package memory is an in-process object store. It backs tests and dry
// experiments with the classifier without touching a real bucket.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dev-tams/blobsweep/internal/storage/blob"
)

const (
	urlScheme       = "mem://"
	defaultPageSize = 1000
)

type Store struct {
	mu         sync.Mutex
	objects    map[string]blob.Object
	pageSize   int
	listErrs   map[string]error
	deleteErrs map[string]error

	listCalls   int
	deleteCalls int
}

func New(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Store{
		objects:    make(map[string]blob.Object),
		pageSize:   pageSize,
		listErrs:   make(map[string]error),
		deleteErrs: make(map[string]error),
	}
}

func (s *Store) Name() string { return "memory" }

// Put stores obj, filling in its URL when empty.
func (s *Store) Put(objs ...blob.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obj := range objs {
		if obj.URL == "" {
			obj.URL = urlScheme + obj.Key
		}
		s.objects[obj.Key] = obj
	}
}

// Clone returns an independent copy of the stored objects and injected failures.
func (s *Store) Clone() *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := New(s.pageSize)
	for k, v := range s.objects {
		c.objects[k] = v
	}
	for k, v := range s.listErrs {
		c.listErrs[k] = v
	}
	for k, v := range s.deleteErrs {
		c.deleteErrs[k] = v
	}
	return c
}

// FailList makes every List call for prefix return err.
func (s *Store) FailList(prefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErrs[prefix] = err
}

// FailDelete makes Delete of key return err.
func (s *Store) FailDelete(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErrs[key] = err
}

func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *Store) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func (s *Store) DeleteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteCalls
}

func (s *Store) List(ctx context.Context, prefix, cursor string) (blob.Page, error) {
	if err := ctx.Err(); err != nil {
		return blob.Page{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++

	if err, ok := s.listErrs[prefix]; ok {
		return blob.Page{}, err
	}

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) && k > cursor {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var page blob.Page
	if len(keys) > s.pageSize {
		keys = keys[:s.pageSize]
		page.NextCursor = keys[len(keys)-1]
	}
	page.Objects = make([]blob.Object, 0, len(keys))
	for _, k := range keys {
		page.Objects = append(page.Objects, s.objects[k])
	}
	return page, nil
}

func (s *Store) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(url, urlScheme) {
		return fmt.Errorf("memory: unsupported url %q", url)
	}
	key := strings.TrimPrefix(url, urlScheme)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++

	if err, ok := s.deleteErrs[key]; ok {
		return err
	}
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("delete %s: %w", key, blob.ErrNotFound)
	}
	delete(s.objects, key)
	return nil
}
