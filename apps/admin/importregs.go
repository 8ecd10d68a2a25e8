package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/event"
)

var errImportRejected = errors.New("import rejected: fix the errors above and retry")

func (cli *commandLine) importRegistrationsCmd() *cobra.Command {
	var (
		eventID, file string
		dryRun        bool
	)
	cmd := &cobra.Command{
		Use:   "import-registrations",
		Short: "Import event registrations from a .csv or .xlsx file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := cli.importRegistrations(context.Background(), eventID, file, dryRun)
			return err
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "event ID")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path of the .csv or .xlsx file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without importing")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (cli *commandLine) importRegistrations(ctx context.Context, eventID, path string, dryRun bool) (event.ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return event.ImportReport{}, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	rep, err := cli.svcs.Registrations.Import(ctx, access.System, eventID, filepath.Base(path), f, dryRun)
	if err != nil {
		return rep, err
	}

	cli.printf("rows: %d, valid: %d, invalid: %d\n", rep.TotalRows, rep.ValidRows, rep.InvalidRows)
	for _, e := range rep.Errors {
		cli.printf("  row %d, %s: %s\n", e.Row, e.Field, e.Message)
	}
	if rep.HasErrors() {
		return rep, errImportRejected
	}
	if dryRun {
		cli.printf("dry run: nothing imported\n")
	} else {
		cli.printf("%d registrations imported\n", rep.Imported)
	}
	return rep, nil
}
