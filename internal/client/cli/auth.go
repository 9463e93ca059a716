package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/feedbackd/internal/client/session"
	"github.com/dmitrijs2005/feedbackd/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for username, email and password and creates the account.
// It does not log in.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.api.Register(ctx, username, email, string(password))
	if err != nil {
		a.printError(err)
		return err
	}

	fmt.Fprintf(a.out, "Registered %s, you can log in now\n", u.Email)
	return nil
}

// Login authenticates and remembers the token in the session database.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	token, u, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		a.printError(err)
		return err
	}

	a.user = u
	if err := a.sessions.Save(ctx, &session.Session{
		Token:    token,
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
	}); err != nil {
		fmt.Fprintf(a.out, "Logged in, but the session was not saved: %v\n", err)
		return nil
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", u.Username)
	return nil
}

// Logout forgets the token locally. Tokens are stateless, so the server is
// not contacted.
func (a *App) Logout(ctx context.Context) error {
	if !a.requireLogin() {
		return nil
	}
	a.forget(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) requireLogin() bool {
	if a.isLoggedIn() {
		return true
	}
	fmt.Fprintln(a.out, "Please log in first")
	return false
}
