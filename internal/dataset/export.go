package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/atoll-dev/siteplanner/internal/feature"
)

// exportHeader lists the columns in export order: coordinates, label, the
// eight features, then provenance.
func exportHeader() []string {
	header := []string{"latitude", "longitude", "label"}
	header = append(header, feature.Names...)
	return append(header, "rule_version", "source")
}

func exportRow(smp Sample) []string {
	row := []string{
		strconv.FormatFloat(smp.Latitude, 'f', -1, 64),
		strconv.FormatFloat(smp.Longitude, 'f', -1, 64),
		smp.Label,
	}
	for _, name := range feature.Names {
		row = append(row, strconv.FormatFloat(smp.Features[name], 'f', -1, 64))
	}
	return append(row, smp.RuleVersion, smp.Source)
}

// ExportCSV writes all samples matching the filter as CSV.
func ExportCSV(ctx context.Context, store Store, filter Filter, w io.Writer) (int, error) {
	samples, err := store.ListSamples(ctx, filter)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader()); err != nil {
		return 0, eris.Wrap(err, "export: write header")
	}
	for _, smp := range samples {
		if err := cw.Write(exportRow(smp)); err != nil {
			return 0, eris.Wrap(err, "export: write row")
		}
	}
	cw.Flush()
	return len(samples), eris.Wrap(cw.Error(), "export: flush")
}

// ExportXLSX writes all samples matching the filter to an XLSX file.
func ExportXLSX(ctx context.Context, store Store, filter Filter, path string) (int, error) {
	samples, err := store.ListSamples(ctx, filter)
	if err != nil {
		return 0, err
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("samples")
	if err != nil {
		return 0, eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range exportHeader() {
		header.AddCell().SetString(name)
	}

	for _, smp := range samples {
		row := sheet.AddRow()
		row.AddCell().SetFloat(smp.Latitude)
		row.AddCell().SetFloat(smp.Longitude)
		row.AddCell().SetString(smp.Label)
		for _, name := range feature.Names {
			row.AddCell().SetFloat(smp.Features[name])
		}
		row.AddCell().SetString(smp.RuleVersion)
		row.AddCell().SetString(smp.Source)
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrap(err, "export: save xlsx")
	}
	return len(samples), nil
}
