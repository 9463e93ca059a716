package feedback

import (
	"context"

	"github.com/dmitrijs2005/feedbackd/internal/server/models"
)

// Repository persists feedback records. Every read and write is scoped to
// the owning user; a record owned by someone else behaves as absent.
type Repository interface {
	Create(ctx context.Context, f *models.Feedback) (*models.Feedback, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Feedback, error)
	Get(ctx context.Context, id, ownerID string) (*models.Feedback, error)
	// GetForUpdate is Get with a row lock; use it inside a transaction.
	GetForUpdate(ctx context.Context, id, ownerID string) (*models.Feedback, error)
	Update(ctx context.Context, f *models.Feedback) error
	Delete(ctx context.Context, id, ownerID string) error
}
