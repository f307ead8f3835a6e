package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
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
	LoginSocial(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	Logout(ctx context.Context) error
	GlobalLogout(ctx context.Context) error
	Profile(ctx context.Context) error
	UpdateProfile(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	ChangeStatus(ctx context.Context) error
	UploadAvatar(ctx context.Context) error
	CheckSession(ctx context.Context) error
	Ping(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, social, forgot, ping, exit"
	helpLoggedIn  = "Available commands: (p)rofile, update, password, status, avatar, check, logout, logoutall, ping, exit"
)

// runREPL starts a simple read-eval-print loop for the account CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Session commands are refused until the user
// logs in. The loop exits on EOF, on "exit"/"quit", or when ctx is done.
//
//	Not logged in:
//	  - register       create an account
//	  - login          authenticate with email and password
//	  - social         authenticate with an identity provider token
//	  - forgot         reset a forgotten password
//
//	Logged in:
//	  - profile | p    show the account
//	  - update         edit the profile
//	  - password       change the password
//	  - status         activate or deactivate an account
//	  - avatar         upload a profile image
//	  - check          validate the current access token
//	  - logout         end this session
//	  - logoutall      end every session of the account
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		printlnFn(fmt.Sprintf("ga %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				printlnFn("Error:", err)
			}
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var handler func(context.Context) error

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "register":
			handler = a.Register
		case "login":
			handler = a.Login
		case "social":
			handler = a.LoginSocial
		case "forgot":
			handler = a.ForgotPassword
		case "ping":
			handler = a.Ping

		case "p", "profile", "update", "password", "status", "avatar", "check", "logout", "logoutall":
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
			handler = sessionCommand(a, cmd)

		default:
			printlnFn("Unknown command:", cmd)
			continue
		}

		if err := handler(ctx); err != nil {
			printlnFn("Error:", err)
		}
	}
}

func sessionCommand(a execIface, cmd string) func(context.Context) error {
	switch cmd {
	case "p", "profile":
		return a.Profile
	case "update":
		return a.UpdateProfile
	case "password":
		return a.ChangePassword
	case "status":
		return a.ChangeStatus
	case "avatar":
		return a.UploadAvatar
	case "check":
		return a.CheckSession
	case "logout":
		return a.Logout
	default:
		return a.GlobalLogout
	}
}
