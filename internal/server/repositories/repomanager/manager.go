package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/feedbackd/internal/dbx"
	"github.com/dmitrijs2005/feedbackd/internal/server/repositories/feedback"
	"github.com/dmitrijs2005/feedbackd/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can decide per call which one they need.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Feedback(db dbx.DBTX) feedback.Repository
}
