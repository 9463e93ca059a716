package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/feedbackd/internal/client/api"
	"github.com/dmitrijs2005/feedbackd/internal/client/config"
	"github.com/dmitrijs2005/feedbackd/internal/client/session"
)

// feedbackAPI is the part of *api.Client the commands use.
type feedbackAPI interface {
	Ping(ctx context.Context) error
	SetToken(token string)
	Register(ctx context.Context, username, email, password string) (*api.User, error)
	Login(ctx context.Context, email, password string) (string, *api.User, error)
	Upload(ctx context.Context, in api.FeedbackInput) (*api.Feedback, error)
	Update(ctx context.Context, id string, in api.FeedbackInput) (*api.Feedback, error)
	List(ctx context.Context) ([]api.Feedback, error)
	Get(ctx context.Context, id string) (*api.Feedback, error)
	Delete(ctx context.Context, id string) error
}

type sessionStore interface {
	Save(ctx context.Context, s *session.Session) error
	Load(ctx context.Context) (*session.Session, error)
	Clear(ctx context.Context) error
}

type App struct {
	config   *config.Config
	api      feedbackAPI
	sessions sessionStore
	db       *sql.DB
	user     *api.User
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := session.Open(ctx, c.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("error initializing session database: %w", err)
	}

	a := &App{
		config:   c,
		api:      api.New(c.ServerURL, c.RequestTimeout),
		sessions: session.NewStore(db),
		db:       db,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}

	if err := a.restoreSession(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// restoreSession picks up the token saved by a previous login, if any.
func (a *App) restoreSession(ctx context.Context) error {
	s, err := a.sessions.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}

	a.api.SetToken(s.Token)
	a.user = &api.User{ID: s.UserID, Username: s.Username, Email: s.Email}
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.user != nil
}

func (a *App) status() string {
	if a.user == nil {
		return ""
	}
	return fmt.Sprintf("(%s)", a.user.Username)
}

// Run greets the user and blocks in the REPL until exit or end of input.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to feedbackd CLI (type 'help' for commands)")
	if err := a.api.Ping(ctx); err != nil {
		fmt.Fprintf(a.out, "Server %s is not reachable: %v\n", a.config.ServerURL, err)
	}
	if a.user != nil {
		fmt.Fprintf(a.out, "Logged in as %s\n", a.user.Username)
	}

	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// report prints err in user terms. A rejected token is dropped so the prompt
// reflects that a new login is needed.
func (a *App) report(ctx context.Context, err error) {
	if errors.Is(err, api.ErrUnauthorized) && a.isLoggedIn() {
		fmt.Fprintln(a.out, "Session is no longer valid, please log in again")
		a.forget(ctx)
		return
	}
	a.printError(err)
}

func (a *App) printError(err error) {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrUnavailable):
		fmt.Fprintln(a.out, "Server unavailable, try again later")
	case errors.As(err, &apiErr):
		fmt.Fprintf(a.out, "Error: %s\n", apiErr.Message)
	default:
		fmt.Fprintf(a.out, "Error: %v\n", err)
	}
}

func (a *App) forget(ctx context.Context) {
	a.user = nil
	a.api.SetToken("")
	if err := a.sessions.Clear(ctx); err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
	}
}
