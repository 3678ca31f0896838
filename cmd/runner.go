package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/credentials"
	"github.com/desertthunder/plx/internal/locks"
	"github.com/desertthunder/plx/internal/operations"
	"github.com/desertthunder/plx/internal/reorder"
	"github.com/desertthunder/plx/internal/repositories"
	"github.com/desertthunder/plx/internal/retry"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/snapshot"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and the engine are opened on first use so that commands which only touch the
// config file do not need a reachable database.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer

	db          *sqlx.DB
	store       *repositories.Store
	credentials *credentials.Manager
	executor    *tasks.Executor
	closers     []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	DB         *sqlx.DB // opened from Config when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
	if r.db != nil {
		r.store = repositories.NewStore(r.db)
	}
	return r
}

// SetLogger replaces the logger used by the runner and anything it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database and lock backend.
func (r *Runner) Close() error {
	var errs []string
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err.Error())
		}
	}
	r.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("failed to close runner: %s", strings.Join(errs, "; "))
	}
	return nil
}

// openStore opens the configured database, applies migrations and builds the repositories.
func (r *Runner) openStore() (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := r.openDB()
	if err != nil {
		return nil, err
	}
	if err := shared.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.store = repositories.NewStore(db)
	return r.store, nil
}

// openDB opens the configured database without touching its schema.
func (r *Runner) openDB() (*sqlx.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.closers = append(r.closers, db.Close)
	return db, nil
}

// openCredentials builds the credential manager. It needs the encryption key and Spotify app credentials.
func (r *Runner) openCredentials() (*credentials.Manager, error) {
	if r.credentials != nil {
		return r.credentials, nil
	}
	store, err := r.openStore()
	if err != nil {
		return nil, err
	}
	if err := r.config.RequireEncryptionKey(); err != nil {
		return nil, err
	}
	encryptor, err := credentials.NewXChaChaEncryptor(r.config.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}
	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}

	exchanger := credentials.NewSpotifyExchanger(spotify.OAuthConfig(), services.ClientOptions{
		RequestsPerSecond: r.config.Engine.RequestsPerSecond,
	})
	r.credentials = credentials.NewManager(credentials.ManagerOpts{
		Store:     store.Users,
		Encryptor: encryptor,
		Exchanger: exchanger,
		Retry:     retry.New(r.retryPolicy(), r.logger),
		Logger:    r.logger,
	})
	return r.credentials, nil
}

// openExecutor wires the job executor: operations, snapshots, locks and credentials.
func (r *Runner) openExecutor() (*tasks.Executor, error) {
	if r.executor != nil {
		return r.executor, nil
	}
	store, err := r.openStore()
	if err != nil {
		return nil, err
	}
	manager, err := r.openCredentials()
	if err != nil {
		return nil, err
	}

	locker, closeLocks, err := locks.New(r.config.Locks, r.logger)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, closeLocks)

	ops := operations.New(operations.Deps{
		Snapshots:  snapshot.NewGate(store.Snapshots, r.logger),
		Algorithms: reorder.Default(),
		Pairs:      store.Pairs,
		BatchSize:  r.config.Engine.BatchSize,
		Logger:     r.logger,
	})

	r.executor = tasks.NewExecutor(tasks.ExecutorOpts{
		Schedules:      store.Schedules,
		Executions:     store.Executions,
		Clients:        manager,
		Activity:       store.Activity,
		Locks:          locker,
		Ops:            ops,
		Logger:         r.logger,
		ErrorTextLimit: r.config.Engine.ErrorTextLimit,
	})
	return r.executor, nil
}

func (r *Runner) retryPolicy() retry.Policy {
	policy := retry.DefaultPolicy()
	engine := r.config.Engine
	if engine.MaxRetries >= 0 {
		policy.MaxRetries = engine.MaxRetries
	}
	if engine.BaseDelay > 0 {
		policy.BaseDelay = engine.BaseDelay
	}
	if engine.MaxDelay > 0 {
		policy.MaxDelay = engine.MaxDelay
	}
	return policy
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, migrateCommand, authCommand, spotifyCommand, userCommand, scheduleCommand, pairCommand, snapshotCommand,
		activityCommand, daemonCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// idArg reads the positional id argument.
func idArg(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	return id, nil
}
