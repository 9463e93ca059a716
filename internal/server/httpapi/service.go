package httpapi

import (
	"context"

	"github.com/dmitrijs2005/feedbackd/internal/server/models"
)

// UserService is the part of services.UserService the handlers need.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*models.UserSummary, error)
	Login(ctx context.Context, email, password string) (string, *models.UserSummary, error)
}

// FeedbackService is the part of services.FeedbackService the handlers need.
type FeedbackService interface {
	Add(ctx context.Context, ownerID string, fields models.FeedbackFields) (*models.FeedbackView, error)
	List(ctx context.Context, ownerID string) ([]*models.FeedbackView, error)
	Get(ctx context.Context, ownerID, id string) (*models.FeedbackView, error)
	Update(ctx context.Context, ownerID, id string, fields models.FeedbackFields) (*models.FeedbackView, error)
	Delete(ctx context.Context, ownerID, id string) (*models.Feedback, error)
}

// Pinger reports storage health. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}
