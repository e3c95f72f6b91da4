package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/isometry/groupsync/internal/config"
	"github.com/isometry/groupsync/internal/export"
	"github.com/isometry/groupsync/internal/snapshot"
)

// ExportCommand writes the current groups and members as a snapshot.
func ExportCommand(opts Options) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a snapshot of the groups and members in a directory",
		ArgsUsage: "[directory-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "output",
				Aliases:   []string{"o"},
				Usage:     "snapshot file to write (default: standard output)",
				TakesFile: true,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: fmt.Sprintf("groups whose members are listed at once (1-%d)", config.MaxConcurrency),
			},
		},
		Action: func(c *cli.Context) error {
			return runExport(c, opts)
		},
	}
}

func runExport(c *cli.Context, opts Options) error {
	cfg, directoryID, err := loadExportConfig(c, opts)
	if err != nil {
		return err
	}

	s, err := open(logContext(c, cfg), opts, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	exporter, err := export.New(s.dir, cfg.PageSize)
	if err != nil {
		return cli.Exit(err.Error(), ExitFatal)
	}
	exporter.SetConcurrency(cfg.Concurrency)

	result, err := exporter.Export(s.ctx, directoryID)
	if err != nil {
		return cli.Exit(err.Error(), ExitFatal)
	}

	for _, f := range result.Failures {
		fmt.Fprintf(c.App.ErrWriter, "warning: members of %s not exported: %v\n", f.Group, f.Err)
	}

	if out := c.String("output"); out != "" {
		if err := snapshot.WriteFile(out, result.Snapshot); err != nil {
			return cli.Exit(err.Error(), ExitFatal)
		}
		fmt.Fprintf(c.App.ErrWriter, "Exported %d groups to %s\n", len(result.Snapshot.Groups), out)
		return nil
	}

	if err := snapshot.Write(c.App.Writer, result.Snapshot); err != nil {
		return cli.Exit(err.Error(), ExitFatal)
	}
	return nil
}

// loadExportConfig loads the configuration and resolves the optional
// directory-id argument. The ldap backend defaults to its group container.
func loadExportConfig(c *cli.Context, opts Options) (*config.Config, string, error) {
	if c.Args().Len() > 1 {
		return nil, "", cli.Exit(fmt.Sprintf("%s accepts at most one directory-id argument", c.Command.Name), ExitFatal)
	}

	cfg, err := loadConfig(c, opts)
	if err != nil {
		return nil, "", err
	}

	directoryID := c.Args().First()
	if directoryID == "" && cfg.Backend == config.BackendLDAP {
		directoryID = cfg.LDAP.Container()
	}
	if directoryID == "" {
		return nil, "", cli.Exit(fmt.Sprintf("%s requires a directory-id argument", c.Command.Name), ExitFatal)
	}
	return cfg, directoryID, nil
}
