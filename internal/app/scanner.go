package app

import (
	"context"
	"fmt"

	"github.com/dev-tams/blobsweep/internal/storage/blob"
)

// Scanner walks every page under a prefix. Pages are fetched one at a time
// since each cursor comes from the previous response.
type Scanner struct {
	lister blob.Lister
}

func NewScanner(l blob.Lister) *Scanner {
	return &Scanner{lister: l}
}

// Scan calls fn with each page of objects under prefix. A listing error or an
// error from fn stops the scan and is returned.
func (s *Scanner) Scan(ctx context.Context, prefix string, fn func([]blob.Object) error) error {
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.lister.List(ctx, prefix, cursor)
		if err != nil {
			return fmt.Errorf("list %q: %w", prefix, err)
		}
		if err := fn(page.Objects); err != nil {
			return err
		}

		if page.NextCursor == "" {
			return nil
		}
		if page.NextCursor == cursor {
			return fmt.Errorf("list %q: cursor %q did not advance", prefix, cursor)
		}
		cursor = page.NextCursor
	}
}
