package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/gophid/internal/client/client"
	"github.com/dmitrijs2005/gophid/internal/client/config"
)

// accountAPI is the part of client.HTTPClient the commands use.
type accountAPI interface {
	Signup(ctx context.Context, email, password string) (*client.Profile, error)
	Verify(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*client.Profile, error)
	Current(ctx context.Context) (*client.Profile, error)
	Logout(ctx context.Context) error
	Update(ctx context.Context, upd client.ProfileUpdate) (*client.Account, error)
	UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error)
	Token() string
}

type App struct {
	config *config.Config
	api    accountAPI
	email  string
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		api:    client.New(c.ServerURL, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

func (a *App) isLoggedIn() bool {
	return a.api.Token() != ""
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return a.email
	}
	return "guest"
}

// Run starts the REPL on the app's reader and blocks until the user exits
// or input ends.
func (a *App) Run(ctx context.Context) {
	printlnFn("gophid CLI (type 'help' for commands), server", a.config.ServerURL)
	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}
