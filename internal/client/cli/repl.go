package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Verify(ctx context.Context, args []string) error
	Resend(ctx context.Context) error
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Update(ctx context.Context) error
	Avatar(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
}

// runREPL reads commands line by line and dispatches them to a.
//
//	Not logged in:
//	  - register        create an account
//	  - verify <token>  confirm the email address
//	  - resend          send the verification email again
//	  - login           authenticate
//
//	Logged in:
//	  - whoami          show the current profile
//	  - update          change display name, email or subscription
//	  - avatar <path>   upload an avatar image
//	  - logout          end the session
//
// help, exit and quit work in both states. Command errors are printed and
// the loop continues; it ends on EOF or exit.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("gophid (%s)> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, update, avatar <path>, logout, exit")
			} else {
				printlnFn("Available commands: register, verify <token>, resend, login, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "verify":
			err = a.Verify(ctx, args)

		case "resend":
			err = a.Resend(ctx)

		case "login":
			err = a.Login(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "update":
			err = a.Update(ctx)

		case "avatar":
			err = a.Avatar(ctx, args)

		case "logout":
			err = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil && !errors.Is(err, errUsage) {
			printlnFn("error:", err)
		}
	}
}
