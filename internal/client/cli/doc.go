// Package cli provides the interactive gophid command-line client.
//
// It wires configuration and the HTTP API client into a small REPL:
// register, verify, resend, login, whoami, update, avatar and logout.
// Passwords are read from the terminal without echo.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
