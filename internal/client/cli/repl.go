package cli

import (
	"bufio"
	"context"
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
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	Suggest(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the authdesk CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF, context cancellation, or
// when the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           — show available commands
//	  - register       — create an account
//	  - login          — authenticate
//	  - forgot         — request a password-reset email
//	  - reset          — complete a reset with an emailed token
//	  - suggest        — generate a strong password
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - help           — show available commands
//	  - whoami         — show the current account
//	  - passwd         — change the account password
//	  - suggest        — generate a strong password
//	  - logout         — log out
//	  - exit | quit    — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// report their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		printlnFn(fmt.Sprintf("authdesk %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, passwd, suggest, logout, exit")
			} else {
				printlnFn("Available commands: register, login, forgot, reset, suggest, exit")
			}
		case "exit", "quit":
			return
		case "suggest":
			a.Suggest(ctx)
		default:
			if a.isLoggedIn() {
				switch cmd {
				case "whoami":
					a.WhoAmI(ctx)
				case "passwd":
					a.ChangePassword(ctx)
				case "logout":
					a.Logout(ctx)
				default:
					printlnFn("Unknown command: " + cmd)
				}
			} else {
				switch cmd {
				case "register":
					a.Register(ctx)
				case "login":
					a.Login(ctx)
				case "forgot":
					a.ForgotPassword(ctx)
				case "reset":
					a.ResetPassword(ctx)
				default:
					printlnFn("Unknown command: " + cmd)
				}
			}
		}
	}
}
