package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedbackd/internal/common"
	"github.com/dmitrijs2005/feedbackd/internal/dbx"
	"github.com/dmitrijs2005/feedbackd/internal/server/models"
)

const selectColumns = `SELECT id, user_id, rating, comment, video, audio, created_at, updated_at FROM feedback`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.Feedback) (*models.Feedback, error) {
	query :=
		`INSERT INTO feedback (id, user_id, rating, comment, video, audio)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, f.ID, f.UserID, f.Rating, f.Comment, f.Video, f.Audio).
		Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return f, nil
}

// ListByOwner returns all records of ownerID, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Feedback, error) {
	query := selectColumns + `
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Feedback, 0)
	for rows.Next() {
		item, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id, ownerID string) (*models.Feedback, error) {
	return r.getOne(ctx, selectColumns+`
		 WHERE id = $1 AND user_id = $2
		 `, id, ownerID)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id, ownerID string) (*models.Feedback, error) {
	return r.getOne(ctx, selectColumns+`
		 WHERE id = $1 AND user_id = $2
		 FOR UPDATE
		 `, id, ownerID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, id, ownerID string) (*models.Feedback, error) {
	f, err := scanFeedback(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// Update overwrites the mutable columns of f and refreshes f.UpdatedAt.
func (r *PostgresRepository) Update(ctx context.Context, f *models.Feedback) error {
	query :=
		`UPDATE feedback
		 SET rating = $3, comment = $4, video = $5, audio = $6, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, f.ID, f.UserID, f.Rating, f.Comment, f.Video, f.Audio).
		Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM feedback WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}

	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeedback(s scanner) (*models.Feedback, error) {
	var (
		f       models.Feedback
		rating  sql.NullFloat64
		comment sql.NullString
		video   sql.NullString
		audio   sql.NullString
	)

	if err := s.Scan(&f.ID, &f.UserID, &rating, &comment, &video, &audio, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}

	if rating.Valid {
		f.Rating = &rating.Float64
	}
	f.Comment = nullString(comment)
	f.Video = nullString(video)
	f.Audio = nullString(audio)

	return &f, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
