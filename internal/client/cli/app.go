package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/authdesk/internal/client/api"
	"github.com/dmitrijs2005/authdesk/internal/client/auth"
	"github.com/dmitrijs2005/authdesk/internal/client/config"
	"github.com/dmitrijs2005/authdesk/internal/client/models"
	"github.com/dmitrijs2005/authdesk/internal/client/session"
	"github.com/dmitrijs2005/authdesk/internal/logging"
)

// App wires the CLI front end to the auth orchestrator.
type App struct {
	config *config.Config
	auth   *auth.Service
	reader *bufio.Reader
	logger logging.Logger
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	client := api.NewHTTPClient(c, logger)
	sessions, err := session.NewManager(c, client, logger)
	if err != nil {
		return nil, err
	}

	app := &App{
		config: c,
		auth:   auth.NewService(c, client, sessions, logger),
		reader: bufio.NewReader(os.Stdin),
		logger: logger,
	}

	app.auth.Subscribe(func(event session.Event, user *models.User) {
		switch event {
		case session.Restored:
			fmt.Printf("Welcome back, %s!\n", user.Username)
		case session.Expired:
			fmt.Println("Your session has expired, please log in again.")
		}
	})

	return app, nil
}

// Run restores any remembered session and enters the REPL. It blocks until
// the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.auth.Close()

	a.auth.TryAutoLogin(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

func (a *App) isLoggedIn() bool {
	return a.auth.IsLoggedIn()
}

func (a *App) getStatus() string {
	if user := a.auth.CurrentUser(); user != nil {
		return fmt.Sprintf("(%s)", user.Username)
	}
	return ""
}
