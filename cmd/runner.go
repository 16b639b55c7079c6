package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/term"
)

// JournalStore is the run journal as used by the commands: recorded into by the engine, listed by history.
type JournalStore interface {
	tasks.Journal
	List(criteria map[string]any) ([]*models.JournalEntry, error)
	LastRunID() (string, error)
}

var _ JournalStore = (*repositories.JournalRepository)(nil)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies that are not injected are built lazily, so a command that fails argument validation never
// touches the network or the database.
type Runner struct {
	config       *shared.Config
	configPath   string
	catalog      services.Catalog
	confirm      tasks.Confirmer
	journal      JournalStore
	db           *sql.DB
	httpClient   *http.Client
	logger       *log.Logger
	customLogger bool
	input        io.Reader
	output       io.Writer
	openBrowser  func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Catalog     services.Catalog
	Confirmer   tasks.Confirmer
	Journal     JournalStore
	HTTPClient  *http.Client
	Logger      *log.Logger
	Input       io.Reader
	Output      io.Writer
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	customLogger := opts.Logger != nil
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:       opts.Config,
		configPath:   opts.ConfigPath,
		catalog:      opts.Catalog,
		confirm:      opts.Confirmer,
		journal:      opts.Journal,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		customLogger: customLogger,
		input:        opts.Input,
		output:       opts.Output,
		openBrowser:  opts.OpenBrowser,
	}
}

// Before loads the config file named by --config and builds the logger from its [log] section.
//
// A missing config file is not an error here: commands that need credentials report it themselves.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.configPath == "" || cmd.IsSet("config") {
		r.configPath = cmd.String("config")
	}

	if r.config == nil {
		config, err := shared.LoadOrDefault(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	if !r.customLogger {
		logger, err := shared.NewConfiguredLogger(os.Stderr, r.config.Log)
		if err != nil {
			return ctx, err
		}
		r.logger = logger
	}

	return ctx, nil
}

// After closes what the command opened.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close releases the journal database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.journal = nil
	return err
}

// spotifyService builds an unauthenticated client from the configured credentials.
func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	opts := []services.SpotifyOption{services.WithRateLimit(r.config.Spotify.RequestsPerSecond)}
	if r.httpClient != nil {
		opts = append(opts, services.WithHTTPClient(r.httpClient))
	}
	if r.config.Spotify.TimeoutSeconds > 0 {
		opts = append(opts, services.WithTimeout(time.Duration(r.config.Spotify.TimeoutSeconds)*time.Second))
	}

	return services.NewSpotifyService(creds.Map(), opts...)
}

// Catalog returns the injected catalog or an authenticated Spotify client. Refreshed tokens are written back
// to the config file.
func (r *Runner) Catalog(ctx context.Context) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	svc, err := r.spotifyService()
	if err != nil {
		return nil, err
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: no Spotify token in %s, run 'spx auth' first", shared.ErrNotAuthenticated, r.configPath)
	}

	svc.SetTokenRefreshCallback(r.saveToken)
	if err := svc.OAuthenticate(ctx, token); err != nil {
		return nil, err
	}

	r.catalog = svc
	return svc, nil
}

func (r *Runner) saveToken(token *oauth2.Token) {
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("ignoring refreshed token", "error", err)
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to persist refreshed token", "path", r.configPath, "error", err)
		return
	}
	r.logger.Debug("refreshed token saved", "path", r.configPath)
}

// Journal returns the injected journal or opens the configured database. It returns nil when
// database.path is empty.
func (r *Runner) Journal() (JournalStore, error) {
	if r.journal != nil {
		return r.journal, nil
	}

	path := r.config.Database.Path
	if path == "" {
		return nil, nil
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("%w: journal: %w", shared.ErrFilesystem, err)
	}
	if path != ":memory:" {
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.journal = repositories.NewJournalRepository(db)
	return r.journal, nil
}

// taskOptions wires the journal into an engine or guard. A journal that fails to open is logged and skipped.
func (r *Runner) taskOptions() []tasks.Option {
	journal, err := r.Journal()
	if err != nil {
		r.logger.Warn("journal disabled", "error", err)
		return nil
	}
	if journal == nil {
		return nil
	}
	return []tasks.Option{tasks.WithJournal(journal)}
}

// Confirmer returns the injected confirmer, a bubbletea prompt on a terminal, or a line prompt otherwise.
func (r *Runner) Confirmer() tasks.Confirmer {
	if r.confirm != nil {
		return r.confirm
	}
	if isTerminal(r.input) && isTerminal(r.output) {
		r.confirm = ui.NewTeaConfirmer(r.input, r.output)
	} else {
		r.confirm = ui.NewLineConfirmer(r.input, r.output)
	}
	return r.confirm
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// parseKind reads the optional --kind flag. The empty string means every kind.
func parseKind(cmd *cli.Command) (models.Kind, bool, error) {
	value := cmd.String("kind")
	if value == "" {
		return "", false, nil
	}
	kind, err := models.ParseKind(value)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}
	return kind, true, nil
}

// writeReport prints the per-unit summary. Partial reports from failed runs are printed too.
func (r *Runner) writeReport(report *tasks.Report) error {
	if report == nil || len(report.Units) == 0 {
		return nil
	}
	return r.writePlain("%s", ui.RenderReport(report))
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
