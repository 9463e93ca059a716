package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/feedbackd/internal/client/api"
	"github.com/dmitrijs2005/feedbackd/internal/client/config"
	"github.com/dmitrijs2005/feedbackd/internal/client/session"
)

var errBoom = errors.New("boom")

type fakeAPI struct {
	token string
	calls []string

	pingErr error

	regUser, regEmail, regPass string
	regErr                     error

	loginEmail, loginPass string
	loginUser             *api.User
	loginErr              error

	input    api.FeedbackInput
	updateID string
	out      *api.Feedback
	items    []api.Feedback
	err      error
}

func (f *fakeAPI) Ping(context.Context) error { return f.pingErr }
func (f *fakeAPI) SetToken(t string)          { f.token = t }

func (f *fakeAPI) Register(_ context.Context, username, email, password string) (*api.User, error) {
	f.calls = append(f.calls, "register")
	f.regUser, f.regEmail, f.regPass = username, email, password
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &api.User{ID: "u1", Username: username, Email: email}, nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (string, *api.User, error) {
	f.calls = append(f.calls, "login")
	f.loginEmail, f.loginPass = email, password
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	f.token = "tok"
	return "tok", f.loginUser, nil
}

func (f *fakeAPI) Upload(_ context.Context, in api.FeedbackInput) (*api.Feedback, error) {
	f.calls = append(f.calls, "upload")
	f.input = in
	return f.out, f.err
}

func (f *fakeAPI) Update(_ context.Context, id string, in api.FeedbackInput) (*api.Feedback, error) {
	f.calls = append(f.calls, "update:"+id)
	f.updateID, f.input = id, in
	return f.out, f.err
}

func (f *fakeAPI) List(context.Context) ([]api.Feedback, error) {
	f.calls = append(f.calls, "list")
	return f.items, f.err
}

func (f *fakeAPI) Get(_ context.Context, id string) (*api.Feedback, error) {
	f.calls = append(f.calls, "get:"+id)
	return f.out, f.err
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	f.calls = append(f.calls, "delete:"+id)
	return f.err
}

type fakeSessions struct {
	saved    *session.Session
	saveErr  error
	loadErr  error
	cleared  bool
	clearErr error
}

func (f *fakeSessions) Save(_ context.Context, s *session.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = s
	return nil
}

func (f *fakeSessions) Load(context.Context) (*session.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.saved == nil {
		return nil, session.ErrNoSession
	}
	return f.saved, nil
}

func (f *fakeSessions) Clear(context.Context) error {
	f.cleared = true
	f.saved = nil
	return f.clearErr
}

func newTestApp(fa *fakeAPI, fs *fakeSessions) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &App{
		config:   &config.Config{ServerURL: "http://test"},
		api:      fa,
		sessions: fs,
		reader:   bufio.NewReader(strings.NewReader("")),
		out:      out,
	}, out
}

func loggedIn(a *App) *App {
	a.user = &api.User{ID: "u1", Username: "alice", Email: "a@x.com"}
	return a
}

// stubAnswers feeds answers to getSimpleText in order and pw to getPassword.
func stubAnswers(t *testing.T, pw string, answers ...string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
