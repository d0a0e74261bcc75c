// Package session keeps one draft per wizard session.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/medsave/rxwizard/internal/domain/draft"
)

var (
	ErrNotFound = errors.New("session: draft not found")
	// ErrConflict is returned when an update keeps losing to concurrent writers.
	ErrConflict = errors.New("session: draft updated concurrently")
)

// DefaultTTL is how long an untouched draft is kept.
const DefaultTTL = 12 * time.Hour

// Repository stores drafts by id. Update runs fn against a private copy of
// the stored draft and persists the copy only when fn returns nil; updates to
// the same draft are serialized.
type Repository interface {
	Create(ctx context.Context, s *draft.Store) (string, error)
	Get(ctx context.Context, id string) (*draft.Store, error)
	Update(ctx context.Context, id string, fn func(*draft.Store) error) (*draft.Store, error)
	Delete(ctx context.Context, id string) error
}
