package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/feedbackd/internal/common"
	"github.com/dmitrijs2005/feedbackd/internal/dbx"
	"github.com/dmitrijs2005/feedbackd/internal/logging"
	"github.com/dmitrijs2005/feedbackd/internal/server/media"
	"github.com/dmitrijs2005/feedbackd/internal/server/models"
	"github.com/dmitrijs2005/feedbackd/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// FeedbackService manages the feedback records of authenticated users.
// Records are always addressed together with their owner, so a record owned
// by someone else is reported as common.ErrNotFound.
type FeedbackService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       media.Store
	logger      logging.Logger
}

func NewFeedbackService(db *sql.DB, m repomanager.RepositoryManager, store media.Store, logger logging.Logger) *FeedbackService {
	return &FeedbackService{
		db:          db,
		repomanager: m,
		store:       store,
		logger:      logger.With("module", "feedback"),
	}
}

// Add stores a new record for ownerID exactly as given.
func (s *FeedbackService) Add(ctx context.Context, ownerID string, fields models.FeedbackFields) (*models.FeedbackView, error) {
	item := &models.Feedback{
		ID:      uuid.NewString(),
		UserID:  ownerID,
		Rating:  fields.Rating,
		Comment: fields.Comment,
		Video:   fields.Video,
		Audio:   fields.Audio,
	}

	created, err := s.repomanager.Feedback(s.db).Create(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("error creating feedback: %w", err)
	}

	s.logger.Info(ctx, "feedback added", "id", created.ID, "user", ownerID)
	return s.View(ctx, created)
}

// List returns every record of ownerID, newest first.
func (s *FeedbackService) List(ctx context.Context, ownerID string) ([]*models.FeedbackView, error) {
	items, err := s.repomanager.Feedback(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing feedback: %w", err)
	}

	views := make([]*models.FeedbackView, 0, len(items))
	for _, item := range items {
		v, err := s.View(ctx, item)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *FeedbackService) Get(ctx context.Context, ownerID, id string) (*models.FeedbackView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	item, err := s.repomanager.Feedback(s.db).Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return s.View(ctx, item)
}

// Delete removes the record and then, best-effort, its media. The returned
// record is the state before deletion.
func (s *FeedbackService) Delete(ctx context.Context, ownerID, id string) (*models.Feedback, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	repo := s.repomanager.Feedback(s.db)

	item, err := repo.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := repo.Delete(ctx, id, ownerID); err != nil {
		return nil, err
	}

	s.removeMedia(ctx, item.MediaRefs()...)
	s.logger.Info(ctx, "feedback deleted", "id", id, "user", ownerID)
	return item, nil
}

// Update applies fields to the record. Media references are verified before
// anything is written; a missing one fails the whole update with
// common.ErrVideoNotFound or common.ErrAudioNotFound.
func (s *FeedbackService) Update(ctx context.Context, ownerID, id string, fields models.FeedbackFields) (*models.FeedbackView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var (
		item     *models.Feedback
		replaced []string
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Feedback(tx)

		current, err := repo.GetForUpdate(ctx, id, ownerID)
		if err != nil {
			return err
		}

		if err := s.checkMedia(ctx, fields.Video, common.ErrVideoNotFound); err != nil {
			return err
		}
		if err := s.checkMedia(ctx, fields.Audio, common.ErrAudioNotFound); err != nil {
			return err
		}

		// a supplied rating counts even when 0; an empty form value arrives as nil
		if fields.Rating != nil {
			current.Rating = fields.Rating
		}
		if common.Truthy(fields.Comment) {
			current.Comment = fields.Comment
		}

		var old []string
		current.Video, old = replaceRef(current.Video, fields.Video, old)
		current.Audio, old = replaceRef(current.Audio, fields.Audio, old)

		if err := repo.Update(ctx, current); err != nil {
			return err
		}

		item, replaced = current, old
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.removeMedia(ctx, replaced...)
	s.logger.Info(ctx, "feedback updated", "id", id, "user", ownerID)
	return s.View(ctx, item)
}

// View projects item onto the client representation, turning media
// references into URLs.
func (s *FeedbackService) View(ctx context.Context, item *models.Feedback) (*models.FeedbackView, error) {
	video, err := s.url(ctx, item.Video)
	if err != nil {
		return nil, err
	}
	audio, err := s.url(ctx, item.Audio)
	if err != nil {
		return nil, err
	}

	return &models.FeedbackView{
		ID:        item.ID,
		UserID:    item.UserID,
		Rating:    item.Rating,
		Comment:   item.Comment,
		Video:     video,
		Audio:     audio,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}, nil
}

func (s *FeedbackService) url(ctx context.Context, ref *string) (*string, error) {
	if ref == nil {
		return nil, nil
	}
	u, err := s.store.URL(ctx, *ref)
	if err != nil {
		return nil, fmt.Errorf("error resolving media url: %w", err)
	}
	return &u, nil
}

func (s *FeedbackService) checkMedia(ctx context.Context, ref *string, missing error) error {
	if ref == nil {
		return nil
	}
	ok, err := s.store.Exists(ctx, *ref)
	if err != nil {
		return fmt.Errorf("error checking media: %w", err)
	}
	if !ok {
		return missing
	}
	return nil
}

func (s *FeedbackService) removeMedia(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		if err := s.store.Remove(ctx, ref); err != nil {
			s.logger.Warn(ctx, "could not remove media", "ref", ref, "error", err)
		}
	}
}

// replaceRef returns the reference to keep and appends the current one to
// old when it is being replaced by a different one.
func replaceRef(current, next *string, old []string) (*string, []string) {
	if next == nil {
		return current, old
	}
	if current != nil && *current != *next {
		old = append(old, *current)
	}
	return next, old
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrInvalidIdentifier
	}
	return nil
}
