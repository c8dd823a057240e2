package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstore/internal/library"
	"github.com/desertthunder/plstore/internal/shared"
	"github.com/desertthunder/plstore/internal/store"
	"github.com/desertthunder/plstore/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	// Config, when set, is used instead of reading --config.
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, itemCommand, watchCommand, clearCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the configuration for cmd, applying the --db override.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	config := r.config
	if config == nil {
		path := cmd.String("config")
		if path == "" {
			path = r.configPath
		}

		loaded, err := shared.LoadConfig(path)
		switch {
		case errors.Is(err, shared.ErrMissingConfig):
			r.logger.Debug("config file not found, using defaults", "path", path)
			config = shared.DefaultConfig()
		case err != nil:
			return nil, err
		default:
			config = loaded
		}
	}

	if dbPath := cmd.String("db"); dbPath != "" {
		override := *config
		override.Database.Path = dbPath
		config = &override
	}

	return config, config.Validate()
}

// openStore opens the configured store; callers close it.
func (r *Runner) openStore(ctx context.Context, cmd *cli.Command) (*store.DB, error) {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return r.open(ctx, config)
}

func (r *Runner) open(ctx context.Context, config *shared.Config) (*store.DB, error) {
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))
	return store.Open(ctx, store.OptionsFromConfig(config, r.logger))
}

// withService runs fn against a freshly opened store.
func (r *Runner) withService(ctx context.Context, cmd *cli.Command, fn func(svc *library.Service) error) error {
	db, err := r.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(library.NewService(db, r.logger))
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

func (r *Runner) writeOK(format string, args ...any) error {
	return r.writePlain("%s\n", ui.Styles().OK.Render("✓ "+fmt.Sprintf(format, args...)))
}

func (r *Runner) writeWarn(format string, args ...any) error {
	return r.writePlain("%s\n", ui.Styles().Warn.Render(fmt.Sprintf(format, args...)))
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", ui.Styles().Title.UnsetMarginBottom().Render(title))
	r.writePlain("═══════════════════════════════════════\n")
}

// idArg parses the positional argument name as an identifier.
func idArg(cmd *cli.Command, name string) (int64, error) {
	raw := cmd.StringArg(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return id, nil
}

// stringArg returns the positional argument name, which must be present.
func stringArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.StringArg(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}
