package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/kopilka/internal/client/client"
	"github.com/dmitrijs2005/kopilka/internal/client/config"
	"github.com/dmitrijs2005/kopilka/internal/client/connectivity"
	"github.com/dmitrijs2005/kopilka/internal/client/services"
	"github.com/dmitrijs2005/kopilka/internal/logging"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// App wires configuration, the local database, the gateway client and the
// application services behind an interactive REPL.
type App struct {
	config   *config.Config
	auth     services.AuthService
	expenses services.ExpenseService
	syncer   services.SyncService
	monitor  *connectivity.Monitor
	prober   connectivity.Prober
	session  *services.Session
	reader   *bufio.Reader
	logger   logging.Logger
}

// NewApp builds a fully wired App from the given configuration.
func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	logger := logging.NewZerologLogger(zl)

	db, err := client.InitDatabase(ctx, c.DatabaseFile)
	if err != nil {
		logger.Error(ctx, "error initializing database", "err", err)
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ServerEndpointURL, c.APIKey)

	monitor := connectivity.NewMonitor(true, logger)
	syncer := services.NewSyncService(apiClient, db, monitor, logger)

	return &App{
		config:   c,
		auth:     services.NewAuthService(apiClient, db),
		expenses: services.NewExpenseService(apiClient, db, monitor, syncer, logger),
		syncer:   syncer,
		monitor:  monitor,
		prober:   apiClient,
		reader:   bufio.NewReader(os.Stdin),
		logger:   logger,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) getStatus() string {
	s := ""
	if a.session != nil {
		s = a.session.Email + " "
	}
	if a.monitor.Online() {
		s += "online"
	} else {
		s += "offline"
	}
	return fmt.Sprintf("(%s)", s)
}

// Run restores a persisted session, starts the connectivity watcher and the
// reconnect drainer, and blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.auth.Close(ctx)

	if sess, err := a.auth.Restore(ctx); err == nil && sess != nil {
		a.session = sess
		a.logger.Info(ctx, "session restored", "email", sess.Email)
	}

	go a.monitor.Watch(ctx, a.prober, a.config.OnlineCheckInterval)
	go a.syncer.Run(ctx)

	printlnFn("Kopilka CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}
