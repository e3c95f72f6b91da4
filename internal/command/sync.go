package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/isometry/groupsync/internal/reconcile"
	"github.com/isometry/groupsync/internal/snapshot"
)

// SyncCommand reconciles the directory with a snapshot file.
func SyncCommand(opts Options) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Create missing groups and add members from a snapshot",
		ArgsUsage: "<snapshot>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "verify groups and print the intended changes without writing",
			},
			&cli.BoolFlag{
				Name:  "no-create",
				Usage: "add members to existing groups only, changing nothing when any group is missing",
			},
			&cli.BoolFlag{
				Name:  "fail-on-error",
				Usage: fmt.Sprintf("exit with status %d when any group or membership failed", ExitFailures),
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "identifier attached to every log line of this run",
			},
		},
		Action: func(c *cli.Context) error {
			return runSync(c, opts)
		},
	}
}

// VerifyCommand reports which snapshot groups exist without writing.
func VerifyCommand(opts Options) *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Report which snapshot groups exist in the directory",
		ArgsUsage: "<snapshot>",
		Action: func(c *cli.Context) error {
			return runVerify(c, opts)
		},
	}
}

func runSync(c *cli.Context, opts Options) error {
	path, err := requireArg(c, "snapshot")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c, opts)
	if err != nil {
		return err
	}

	ctx := logContext(c, cfg)

	// The snapshot is read in full before the directory is opened.
	snap, err := snapshot.Load(ctx, path)
	if err != nil {
		return cli.Exit(err.Error(), ExitFatal)
	}

	s, err := open(ctx, opts, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := reconcile.NewOrchestrator(s.dir).Run(s.ctx, snap, reconcile.Options{
		DryRun:   c.Bool("dry-run"),
		NoCreate: c.Bool("no-create"),
		RunID:    c.String("run-id"),
	})
	if err != nil {
		// Only the classifications made before the failure are reported.
		if result != nil {
			fmt.Fprint(c.App.Writer, reconcile.VerificationText(result))
		}
		return cli.Exit(err.Error(), ExitFatal)
	}

	if err := reconcile.WriteReport(c.App.Writer, snap, result); err != nil {
		return cli.Exit(err.Error(), ExitFatal)
	}

	if c.Bool("fail-on-error") && result.HasFailures() {
		return cli.Exit("", ExitFailures)
	}
	return nil
}

func runVerify(c *cli.Context, opts Options) error {
	path, err := requireArg(c, "snapshot")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c, opts)
	if err != nil {
		return err
	}

	ctx := logContext(c, cfg)

	snap, err := snapshot.Load(ctx, path)
	if err != nil {
		return cli.Exit(err.Error(), ExitFatal)
	}

	s, err := open(ctx, opts, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := reconcile.NewOrchestrator(s.dir).Run(s.ctx, snap, reconcile.Options{DryRun: true})
	if result != nil {
		fmt.Fprint(c.App.Writer, reconcile.VerificationText(result))
	}
	if err != nil {
		return cli.Exit(err.Error(), ExitFatal)
	}

	if absent := result.Absent(); len(absent) > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d groups do not exist", len(absent), len(snap.Groups)), ExitFailures)
	}
	return nil
}
