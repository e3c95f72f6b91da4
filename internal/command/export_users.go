package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/isometry/groupsync/internal/export"
)

// ExportUsersCommand writes the user accounts of a directory as CSV.
func ExportUsersCommand(opts Options) *cli.Command {
	return &cli.Command{
		Name:      "export-users",
		Usage:     "Write the user accounts of a directory as CSV",
		ArgsUsage: "[directory-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "output",
				Aliases:   []string{"o"},
				Usage:     "CSV file to write (default: standard output)",
				TakesFile: true,
			},
		},
		Action: func(c *cli.Context) error {
			return runExportUsers(c, opts)
		},
	}
}

func runExportUsers(c *cli.Context, opts Options) (err error) {
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

	var w io.Writer = c.App.Writer
	out := c.String("output")
	if out != "" {
		f, cerr := os.Create(out)
		if cerr != nil {
			return cli.Exit(cerr.Error(), ExitFatal)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cli.Exit(cerr.Error(), ExitFatal)
			}
		}()
		w = f
	}

	count, err := exporter.ExportUsers(s.ctx, directoryID, w)
	if err != nil {
		return cli.Exit(err.Error(), ExitFatal)
	}

	if out != "" {
		fmt.Fprintf(c.App.ErrWriter, "Exported %d users to %s\n", count, out)
	}
	return nil
}
