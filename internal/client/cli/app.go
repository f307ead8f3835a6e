package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/client/client"
	"github.com/dmitrijs2005/gophaccount/internal/client/config"
	"github.com/dmitrijs2005/gophaccount/internal/client/repositories/session"
	"github.com/dmitrijs2005/gophaccount/internal/client/services"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config   *config.Config
	accounts services.AccountService
	logger   logging.Logger
	reader   *bufio.Reader
	out      io.Writer

	mu    sync.Mutex
	email string
	Mode  Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stderr, "text", c.LogLevel)

	db, err := client.InitDatabase(ctx, c.SessionDBPath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewAccountClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	accounts := services.NewAccountService(apiClient, session.NewSQLiteRepository(db), c.AvatarMaxBytes, logger)

	return newApp(c, accounts, logger, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, accounts services.AccountService, logger logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config:   c,
		accounts: accounts,
		logger:   logger,
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) setEmail(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.email = email
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.email != ""
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := ""
	if a.email != "" {
		s = a.email + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Run resumes a remembered session, starts the connectivity watcher and
// serves the REPL until the user quits, stdin closes or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.accounts.Close(ctx)

	fmt.Fprintln(a.out, "Welcome to GophAccount CLI (type 'help' for commands)")

	if s, err := a.accounts.Resume(ctx); err != nil {
		a.logger.Warn(ctx, "could not resume session", "error", err)
	} else if s != nil {
		a.setEmail(s.Email)
		fmt.Fprintf(a.out, "Resumed session of %s\n", s.Email)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.accounts.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

// call bounds one remote operation by the configured request timeout.
func (a *App) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
