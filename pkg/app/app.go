// Package app provides the cobra-based bootstrap shared by the cloud
// bridge, edge agent and fleetctl binaries: one App wraps an options
// bundle and a RunFunc into a ready-to-execute *cobra.Command.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/zeroclaw/fleetctl/pkg/exitcode"
	"github.com/zeroclaw/fleetctl/pkg/log"
)

// RunFunc is the business logic invoked once flags are parsed and options
// are validated.
type RunFunc func() error

// CliOptions is implemented by a binary's top-level options bundle: a
// struct composing several pkg/options groups behind one flag set.
type CliOptions interface {
	Flags() *pflag.FlagSet
	Validate() []error
}

// App wraps a cobra.Command with the conventions shared by every fleetctl
// binary: GOMAXPROCS tuned to the container cgroup via automaxprocs, and
// validation run before RunFunc.
type App struct {
	name        string
	short       string
	description string
	options     CliOptions
	runFunc     RunFunc
	validArgs   cobra.PositionalArgs
	cmd         *cobra.Command
}

// Option configures an App at construction time.
type Option func(*App)

// WithDescription sets the long description shown in --help.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions attaches the binary's options bundle. Its flags are
// registered on the command and Validate() runs before RunFunc.
func WithOptions(opts CliOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the function executed once options validate.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDefaultValidArgs rejects any positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) { a.validArgs = cobra.NoArgs }
}

// NewApp builds an App named name with the short description short.
func NewApp(name, short string, opts ...Option) *App {
	a := &App{
		name:  name,
		short: short,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:          a.name,
		Short:        a.short,
		Long:         a.description,
		Args:         a.validArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run()
		},
	}
	cmd.Flags().SortFlags = false

	if a.options != nil {
		cmd.Flags().AddFlagSet(a.options.Flags())
	}

	a.cmd = cmd
}

func (a *App) run() error {
	if _, err := maxprocs.Set(maxprocs.Logger(func(fmtStr string, args ...any) {
		log.Debug(fmt.Sprintf(fmtStr, args...))
	})); err != nil {
		log.Warn("failed to set GOMAXPROCS", "error", err.Error())
	}

	if a.options != nil {
		if errs := a.options.Validate(); len(errs) > 0 {
			for _, e := range errs {
				log.Error(e, "invalid configuration")
			}
			return exitcode.Wrap(exitcode.ConfigError, fmt.Errorf("%s: %d configuration error(s)", a.name, len(errs)))
		}
	}

	if a.runFunc == nil {
		return nil
	}
	return a.runFunc()
}

// Run parses os.Args and executes the command.
func (a *App) Run() error {
	return a.cmd.Execute()
}

// Command returns the underlying cobra.Command, e.g. for testing or for a
// parent command to attach this one as a subcommand.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
