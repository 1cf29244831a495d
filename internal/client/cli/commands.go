package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophid/internal/client/client"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errUsage = errors.New("usage")

// Register prompts for an email and password and creates the account.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	p, err := a.api.Signup(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s. Follow the link sent to your mailbox, or run 'verify <token>'.\n", p.Email)
	return nil
}

// Verify confirms the email with the token from the verification link.
func (a *App) Verify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: verify <token>")
		return errUsage
	}
	if err := a.api.Verify(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Verification successful")
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if err := a.api.ResendVerification(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Verification email sent")
	return nil
}

// Login prompts for credentials and keeps the session for later commands.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	p, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	a.email = p.Email
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", p.Email, p.Subscription)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	p, err := a.api.Current(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", p.Email, p.Subscription)
	return nil
}

// Update asks for each editable field; empty answers leave it unchanged.
func (a *App) Update(ctx context.Context) error {
	var upd client.ProfileUpdate
	var err error

	if upd.DisplayName, err = GetOptional(a.reader, "Display name", a.out); err != nil {
		return err
	}
	if upd.Email, err = GetOptional(a.reader, "Email", a.out); err != nil {
		return err
	}
	if upd.Subscription, err = GetOptional(a.reader, "Subscription (free, pro, business)", a.out); err != nil {
		return err
	}

	acc, err := a.api.Update(ctx, upd)
	if err != nil {
		return err
	}

	a.email = acc.Email
	name := ""
	if acc.DisplayName != nil {
		name = *acc.DisplayName
	}
	fmt.Fprintf(a.out, "Updated: %s %q (%s)\n", acc.Email, name, acc.Subscription)
	return nil
}

// Avatar uploads the image at the given path.
func (a *App) Avatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: avatar <path>")
		return errUsage
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	url, err := a.api.UploadAvatar(ctx, filepath.Base(args[0]), f)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Avatar:", url)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.email = ""
	if err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
