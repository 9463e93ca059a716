// Package cli provides the interactive feedbackd command-line client.
//
// It wires configuration, the local session database and the HTTP API client
// into a small REPL. A successful login is remembered in the session database
// so the next start skips the prompt.
//
// Commands:
//   - register, login, logout
//   - upload, list, show, update, delete
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
