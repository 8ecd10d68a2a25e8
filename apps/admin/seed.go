package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/pathway/core/dropdown"
)

func (cli *commandLine) seedDropdownsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-dropdowns",
		Short: "Insert the default dropdown options; existing options are kept",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var data []byte
			if file != "" {
				var err error
				if data, err = os.ReadFile(file); err != nil {
					return errors.Wrap(err, "reading seed file")
				}
			}
			n, err := cli.seedDropdowns(context.Background(), data)
			if err != nil {
				return err
			}
			cli.printf("%d dropdown options created\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file (module -> field -> options); defaults to the built-in options")
	return cmd
}

func (cli *commandLine) seedDropdowns(ctx context.Context, data []byte) (int, error) {
	seeds, err := dropdown.LoadSeeds(data)
	if err != nil {
		return 0, err
	}
	return cli.svcs.Dropdowns.Seed(ctx, seeds)
}
