package content

import (
	"context"
	"fmt"
	"time"
)

// Revision identifies the version of a stored document that was read.
// The empty revision means the document did not exist.
type Revision string

// Store persists the published document with compare-and-swap semantics:
// Save fails with ErrConflict when rev no longer matches what is stored.
type Store interface {
	Load(ctx context.Context) (*Document, Revision, error)
	Save(ctx context.Context, doc *Document, rev Revision, message string) error
}

// MutateFunc changes a loaded document in place.
type MutateFunc func(doc *Document) error

// Update loads the document, applies mutate and writes it back conditioned
// on the revision that was read. Conflicts are returned, never retried.
func Update(ctx context.Context, store Store, message string, now func() time.Time, mutate MutateFunc) error {
	doc, rev, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if err := mutate(doc); err != nil {
		return err
	}
	if now == nil {
		now = time.Now
	}
	doc.Touch(now())
	if err := store.Save(ctx, doc, rev, message); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
