package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/atoll-dev/siteplanner/internal/dataset"
)

var (
	exportLabel  string
	exportSource string
)

var exportCmd = &cobra.Command{
	Use:   "export <file.csv|file.xlsx>",
	Short: "Export the stored dataset to CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		filter := dataset.Filter{Label: exportLabel, Source: exportSource}

		var n int
		switch filepath.Ext(path) {
		case ".csv":
			f, err := os.Create(path)
			if err != nil {
				return eris.Wrapf(err, "export: create %s", path)
			}
			defer f.Close() //nolint:errcheck
			n, err = dataset.ExportCSV(ctx, store, filter, f)
			if err != nil {
				return err
			}
		case ".xlsx":
			n, err = dataset.ExportXLSX(ctx, store, filter, path)
			if err != nil {
				return err
			}
		default:
			return eris.Errorf("export: unsupported extension %q, want .csv or .xlsx", filepath.Ext(path))
		}

		fmt.Printf("Exported %d samples to %s\n", n, path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportLabel, "label", "", "only export samples with this label")
	exportCmd.Flags().StringVar(&exportSource, "source", "", "only export samples from this source")
	rootCmd.AddCommand(exportCmd)
}
