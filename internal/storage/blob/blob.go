package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Delete when the object is already gone.
var ErrNotFound = errors.New("object not found")

// Object is one stored object as seen by the sweeper. Writers own it; the
// sweeper only reads and deletes.
type Object struct {
	Key  string
	URL  string
	Size int64
	// UploadedAt is the store-assigned timestamp. Zero when the backend does not
	// report one.
	UploadedAt time.Time
}

// Page is one listing response. An empty NextCursor means there are no more pages.
type Page struct {
	Objects    []Object
	NextCursor string
}

type Lister interface {
	List(ctx context.Context, prefix, cursor string) (Page, error)
}

type Deleter interface {
	// Delete removes the object addressed by url. Implementations return
	// ErrNotFound (possibly wrapped) when nothing was there to delete.
	Delete(ctx context.Context, url string) error
}

type Store interface {
	Lister
	Deleter
	Name() string
}
