package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/finx/internal/shared"
	"github.com/desertthunder/finx/internal/storage"
	"github.com/desertthunder/finx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	registry   *storage.ModeRegistry
	exporter   *tasks.ExportEngine
	importer   *tasks.ImportEngine
	scheduler  *tasks.RecurringEngine
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Registry   *storage.ModeRegistry
	Logger     *log.Logger
	Output     io.Writer
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
		registry:   opts.Registry,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if opts.Registry != nil {
		r.exporter = tasks.NewExportEngine(opts.Registry)
		r.importer = tasks.NewImportEngine(opts.Registry)
		r.scheduler = tasks.NewRecurringEngine(opts.Registry)
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, modeCommand, exportCommand, importCommand, accountCommand, recurringCommand, demoCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// tenant resolves the tenant for a command: the flag when set, otherwise
// the configured default.
func (r *Runner) tenant(cmd *cli.Command) string {
	if t := cmd.String("tenant"); t != "" {
		return t
	}
	if r.config.Storage.Tenant != "" {
		return r.config.Storage.Tenant
	}
	return "default"
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
