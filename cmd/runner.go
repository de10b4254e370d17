package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mietzen/catch-all-autofill/internal/backup"
	"github.com/mietzen/catch-all-autofill/internal/generator"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/repositories"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"github.com/mietzen/catch-all-autofill/internal/tasks"
	"github.com/mietzen/catch-all-autofill/internal/wordlist"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Store-backed dependencies are built by [Runner.open] on first use, so commands that only
// validate input never touch the database.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	newClient  tasks.ClientFactory
	ownsClient bool
	rand       generator.Rand

	db        *sql.DB
	ownsDB    bool
	kv        *repositories.KVRepository
	settings  *repositories.SettingsRepository
	usage     *repositories.UsageLogRepository
	cache     *wordlist.Cache
	generator *generator.Generator
	backups   *backup.Service
	engine    *tasks.BackupEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config        *shared.Config
	ConfigPath    string
	HTTPClient    *http.Client
	Logger        *log.Logger
	Output        io.Writer
	DB            *sql.DB
	ClientFactory tasks.ClientFactory
	Rand          generator.Rand
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	ownsClient := opts.ClientFactory == nil
	if ownsClient {
		opts.ClientFactory = tasks.GitHubClientFactory(opts.Config.Backup, opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		newClient:  opts.ClientFactory,
		ownsClient: ownsClient,
		rand:       opts.Rand,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, generateCommand, validateCommand, wordlistCommand,
		historyCommand, backupCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration file named by --config and applies the log level.
//
// A missing default config file is not an error; an explicitly named one is, except for
// setup, which creates it.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" {
		path = r.configPath
	}
	r.configPath = path

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
		}
		r.config = config
		if r.ownsClient {
			r.newClient = tasks.GitHubClientFactory(config.Backup, r.logger)
		}
	} else if cmd.IsSet("config") && cmd.Args().First() != "setup" {
		return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
	}

	level := cmd.String("log-level")
	if level == "" {
		level = r.config.Log.Level
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger for the TUI.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// open connects the store, applies schema and data migrations and wires the services.
func (r *Runner) open(ctx context.Context) error {
	if r.settings != nil {
		return nil
	}

	if _, err := r.database(); err != nil {
		return err
	}

	if err := shared.RunMigrations(ctx, r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.kv = repositories.NewKVRepository(r.db)
	r.settings = repositories.NewSettingsRepository(r.kv)
	r.usage = repositories.NewUsageLogRepository(r.db)

	migrator := repositories.NewDataMigrator(r.settings, r.usage, shared.WithLogger(r.logger, "component", "migrate"))
	if from, to, err := migrator.Migrate(ctx); err != nil {
		return err
	} else if from != to {
		r.logger.Info("data migrated", "from", from, "to", to)
	}

	r.cache = r.newCache()

	var opts []generator.Option
	if r.rand != nil {
		opts = append(opts, generator.WithRand(r.rand))
	}
	r.generator = generator.New(r.cache.For(r.selector), r.usage, shared.WithLogger(r.logger, "component", "generator"), opts...)

	r.backups = backup.NewService(r.settings, r.usage, r.cache, shared.WithLogger(r.logger, "component", "backup"))
	r.engine = tasks.NewBackupEngine(r.backups, r.settings, r.newClient, r.config.Backup.PathPrefix, shared.WithLogger(r.logger, "component", "remote"))
	return nil
}

// database connects the store without migrating it.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	r.db = db
	r.ownsDB = true
	return db, nil
}

func (r *Runner) newCache() *wordlist.Cache {
	cfg := r.config.Wordlist
	minSize := cfg.MinSize
	if minSize <= 0 {
		minSize = wordlist.DefaultMinSize
	}

	opts := []wordlist.SourceOption{
		wordlist.WithHTTPClient(r.httpClient),
		wordlist.WithTimeout(cfg.FetchTimeout()),
		wordlist.WithMinSize(minSize),
	}
	if cfg.Dir != "" {
		opts = append(opts, wordlist.WithDirectory(os.DirFS(cfg.Dir)))
	}
	logger := shared.WithLogger(r.logger, "component", "wordlist")

	fallback := models.BuiltinSelector(models.DefaultSelection)
	if cfg.Fallback != "" {
		if sel, err := wordlist.ParseSelection(cfg.Fallback, ""); err != nil {
			r.logger.Warn("invalid fallback wordlist, using default", "fallback", cfg.Fallback, "err", err)
		} else {
			fallback = sel
		}
	}

	return wordlist.NewCache(wordlist.NewSource(logger, opts...), r.kv, fallback, minSize, logger)
}

// aliasService builds the issuing pipeline. trigger may be nil.
func (r *Runner) aliasService(trigger tasks.Trigger) *tasks.AliasService {
	return tasks.NewAliasService(r.generator, r.usage, r.settings, trigger, shared.WithLogger(r.logger, "component", "alias"))
}

func (r *Runner) selector(ctx context.Context) (models.Selector, error) {
	settings, err := r.settings.Load(ctx)
	if err != nil {
		return models.Selector{}, err
	}
	return settings.Selector(), nil
}

// Close releases the database when the runner opened it.
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// autoBackup pushes after a usage log change when automatic backups are enabled.
// Failures are logged and recorded in the backup status, never returned.
func (r *Runner) autoBackup(ctx context.Context) {
	if err := r.engine.AutoBackup(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("auto backup failed", "err", err)
	}
}

// autoBackupTrigger runs the auto backup synchronously after each issued alias.
type autoBackupTrigger struct {
	ctx context.Context
	r   *Runner
}

func (t autoBackupTrigger) Trigger() { t.r.autoBackup(t.ctx) }

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
