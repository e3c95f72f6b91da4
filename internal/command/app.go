// Package command defines the groupsync command line.
//
// Every subcommand loads the layered configuration and installs the root
// logger before it opens the directory backend.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/isometry/groupsync/internal/config"
	"github.com/isometry/groupsync/internal/directory"
	"github.com/isometry/groupsync/internal/logging"
	"github.com/isometry/groupsync/internal/pager"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitFatal    = 1
	ExitFailures = 2
)

// Factory opens the directory named by cfg. The returned func releases it.
type Factory func(ctx context.Context, cfg *config.Config) (directory.Directory, func() error, error)

// Options wires the application to its environment.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer

	// Factory defaults to DefaultFactory.
	Factory Factory

	// Lookup reads the environment. Defaults to os.LookupEnv.
	Lookup config.LookupFunc
}

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Factory == nil {
		o.Factory = DefaultFactory
	}
	return o
}

// App creates the CLI application.
func App(opts Options) *cli.App {
	opts = opts.withDefaults()

	return &cli.App{
		Name:      "groupsync",
		Usage:     "Synchronize directory groups and memberships with a snapshot",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Writer:    opts.Stdout,
		ErrWriter: opts.Stderr,
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			SyncCommand(opts),
			VerifyCommand(opts),
			ExportCommand(opts),
			ExportUsersCommand(opts),
		},
		Action: func(c *cli.Context) error {
			if c.Args().Present() {
				return cli.Exit(fmt.Sprintf("unknown command %q", c.Args().First()), ExitFatal)
			}
			if err := cli.ShowAppHelp(c); err != nil {
				return err
			}
			return cli.Exit("a command is required", ExitFatal)
		},
		// Exit codes are resolved by Run, never by os.Exit inside the app.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// Run executes args (including the program name) and returns the exit code.
func Run(ctx context.Context, args []string, opts Options) int {
	opts = opts.withDefaults()
	return exitCode(opts.Stderr, App(opts).RunContext(ctx, args))
}

func exitCode(stderr io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintf(stderr, "error: %s\n", msg)
		}
		return exitErr.ExitCode()
	}

	fmt.Fprintf(stderr, "error: %v\n", err)
	return ExitFatal
}

// globalFlags returns the flags shared by every subcommand.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      "config",
			Aliases:   []string{"c"},
			Usage:     "TOML or YAML configuration file",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:      "env-file",
			Usage:     "dotenv file with GROUPSYNC_* settings (default: .env when present)",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "directory backend: cognito or ldap",
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "AWS region of the user pool",
		},
		&cli.IntFlag{
			Name:  "page-size",
			Usage: fmt.Sprintf("listing page size, at most %d (0: the maximum)", pager.MaxPageSize),
		},
		&cli.Float64Flag{
			Name:  "rate-limit",
			Usage: "maximum directory calls per second (0: unlimited)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: trace, debug, info, warn or error",
		},
	}
}

// session is an opened directory and the logging context it is used with.
type session struct {
	ctx   context.Context
	dir   directory.Directory
	close func() error
}

// loadConfig layers the command-line flags over the configuration sources.
func loadConfig(c *cli.Context, opts Options) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		File:    c.String("config"),
		EnvFile: c.String("env-file"),
		Lookup:  opts.Lookup,
		Override: func(cfg *config.Config) {
			if c.IsSet("backend") {
				cfg.Backend = c.String("backend")
			}
			if c.IsSet("region") {
				cfg.Region = c.String("region")
			}
			if c.IsSet("page-size") {
				cfg.PageSize = int32(c.Int("page-size"))
			}
			if c.IsSet("rate-limit") {
				cfg.RateLimit = c.Float64("rate-limit")
			}
			if c.IsSet("concurrency") {
				cfg.Concurrency = c.Int("concurrency")
			}
			if c.IsSet("log-level") {
				cfg.LogLevel = c.String("log-level")
			}
		},
	})
	if err != nil {
		return nil, cli.Exit(err.Error(), ExitFatal)
	}
	return cfg, nil
}

// logContext installs the root logger configured by cfg.
func logContext(c *cli.Context, cfg *config.Config) context.Context {
	ctx := logging.NewRootLogger(c.Context, cfg.LogLevel)
	return logging.WithField(ctx, "backend", cfg.Backend)
}

// open opens the configured directory.
func open(ctx context.Context, opts Options, cfg *config.Config) (*session, error) {
	dir, closeFn, err := opts.Factory(ctx, cfg)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("opening %s directory: %v", cfg.Backend, err), ExitFatal)
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	if cfg.RateLimit > 0 {
		dir = directory.NewRateLimited(dir, cfg.RateLimit)
	}

	return &session{ctx: ctx, dir: dir, close: closeFn}, nil
}

// requireArg returns the single positional argument of c.
func requireArg(c *cli.Context, name string) (string, error) {
	if c.Args().Len() != 1 {
		return "", cli.Exit(fmt.Sprintf("%s requires exactly one %s argument", c.Command.Name, name), ExitFatal)
	}
	return c.Args().First(), nil
}
