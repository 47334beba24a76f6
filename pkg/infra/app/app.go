// Package app builds the ieum-rag command line from a set of named options.
//
// Configuration is resolved in the order config file, environment
// (prefix derived from the app name) and explicitly set flags, the
// last one winning.
//
//	app.NewApp(
//	    app.WithName("ieum-rag"),
//	    app.WithOptions(opts),
//	    app.WithRunFunc(run),
//	).Run()
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	options "github.com/kart-io/ieum/pkg/app"
	"github.com/kart-io/ieum/pkg/app/cliflag"
)

// App 封装 cobra 命令与配置加载。
type App struct {
	name        string
	description string
	options     options.CliOptions
	runFunc     RunFunc
	noVersion   bool
	cmd         *cobra.Command
}

// RunFunc is the application's run function.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

// WithName sets the application name. It also decides the config file
// name and the environment variable prefix.
func WithName(name string) Option {
	return func(a *App) {
		a.name = name
	}
}

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithOptions sets the CLI options.
func WithOptions(opts options.CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc sets the run function.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithNoVersion disables the --version flag.
func WithNoVersion() Option {
	return func(a *App) {
		a.noVersion = true
	}
}

// NewApp creates a new application instance.
func NewApp(opts ...Option) *App {
	a := &App{
		name: filepath.Base(os.Args[0]),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cmd = a.newCommand()
	return a
}

func (a *App) newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          a.name,
		Long:         a.description,
		RunE:         a.runCommand,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	cmd.PersistentFlags().StringP("config", "c", "", "Path to config file (yaml).")
	if !a.noVersion {
		AddVersionFlags(cmd.PersistentFlags())
	}
	cmd.PersistentFlags().BoolP("help", "h", false, "Help for "+a.name)

	if a.options == nil {
		return cmd
	}

	fss := a.options.Flags()
	for _, name := range fss.Order {
		cmd.Flags().AddFlagSet(fss.FlagSets[name])
	}

	// 按分组打印帮助
	cmd.SetUsageFunc(func(c *cobra.Command) error {
		fmt.Fprintf(c.OutOrStderr(), "Usage:\n  %s\n", c.UseLine())
		cliflag.PrintSections(c.OutOrStderr(), fss, 0)
		fmt.Fprintf(c.OutOrStderr(), "\nGlobal flags:\n\n%s", c.PersistentFlags().FlagUsages())
		return nil
	})
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		fmt.Fprintf(c.OutOrStdout(), "%s\n\n", c.Long)
		_ = c.Usage()
	})
	return cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if !a.noVersion {
		PrintAndExitIfRequested()
	}

	if a.options == nil {
		return a.run()
	}

	if err := a.loadConfig(cmd); err != nil {
		return err
	}
	if err := a.options.Complete(); err != nil {
		return err
	}
	if err := a.options.Validate(); err != nil {
		return err
	}
	return a.run()
}

func (a *App) run() error {
	if a.runFunc == nil {
		return nil
	}
	return a.runFunc()
}

// Run executes the application and exits the process on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command returns the cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
