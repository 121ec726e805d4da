package store

import (
	"context"
	"errors"

	"github.com/krishnaadithya/movie-gen/models"
)

// ErrSessionNotFound is returned for unknown session ids. Callers use
// errors.Is instead of string matching.
var ErrSessionNotFound = errors.New("session not found")

// Sessions is the key-value contract holding session state. Implementations
// must be safe for concurrent use and must serialize Update calls per id, so
// no two concurrent mutations of one session interleave.
type Sessions interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error

	// Update applies fn to the stored session under a per-id lock and
	// persists the result. It returns the updated session.
	Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error)
}

// Statuses is the status register read by polling clients and written only by
// the asset-generation runner. Get returns the NotStarted status for unknown
// ids.
type Statuses interface {
	Set(ctx context.Context, id string, st models.GenerationStatus) error
	Get(ctx context.Context, id string) (models.GenerationStatus, error)
}
