// Package export writes change reports and raw table dumps to CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"

	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/ledger"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/models"
)

// WriteChangeReport writes the session's change log as CSV: a metadata
// preamble, a per-table summary, then one row per changed byte in apply
// order.
func WriteChangeReport(path string, id models.Identity, led *ledger.Ledger) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	sum := led.Summarize()
	w.Write([]string{fmt.Sprintf("# Session: %s", led.Session())})
	w.Write([]string{fmt.Sprintf("# Part number: %s", id.PartNumber)})
	w.Write([]string{fmt.Sprintf("# Calibration: %s", id.CalibrationID)})
	w.Write([]string{fmt.Sprintf("# Profiles: %s", strings.Join(led.AppliedProfiles(), ", "))})
	w.Write([]string{fmt.Sprintf("# Changed bytes: %d in %d regions", sum.TotalChangedBytes, sum.ChangedRegions)})
	for _, table := range sum.Tables() {
		w.Write([]string{fmt.Sprintf("#   %s: %d", table, sum.PerTable[table])})
	}
	w.Write([]string{""})

	w.Write([]string{"Address", "Table", "Old", "New", "Delta", "Profile"})
	for _, r := range led.Export() {
		w.Write([]string{
			fmt.Sprintf("0x%06X", r.Addr),
			r.Table,
			fmt.Sprintf("%d", r.Old),
			fmt.Sprintf("%d", r.New),
			fmt.Sprintf("%+d", int(r.New)-int(r.Old)),
			r.Profile,
		})
	}

	return w.Error()
}

// ExportTables dumps every dimensioned table of the catalog to CSV files
// under exportPath.
func ExportTables(as *image.AddressSpace, cat *models.Catalog, exportPath string) error {
	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return err
	}

	spinner, _ := pterm.DefaultSpinner.Start("Exporting tables to CSV...")
	for _, desc := range cat.All() {
		if desc.Rows == 0 || desc.Cols == 0 {
			continue
		}
		name := strings.ReplaceAll(strings.ToLower(desc.Name), " ", "_") + ".csv"
		if err := exportTableCSV(as, desc, filepath.Join(exportPath, name)); err != nil {
			spinner.Warning(fmt.Sprintf("Failed to export %s", desc.Name))
			continue
		}
	}
	spinner.Success(fmt.Sprintf("Tables exported to %s", exportPath))
	return nil
}

// exportTableCSV writes one table as a raw-count grid. Tables longer than
// Rows*Cols carry a header prefix, which is skipped so the grid starts at
// the first real cell.
func exportTableCSV(as *image.AddressSpace, desc models.TableDescriptor, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	w.Write([]string{fmt.Sprintf("# %s", desc.Name)})
	w.Write([]string{fmt.Sprintf("# Offset: 0x%06X", desc.Offset)})
	w.Write([]string{fmt.Sprintf("# Size: %dx%d", desc.Rows, desc.Cols)})
	if desc.Unit != "" {
		w.Write([]string{fmt.Sprintf("# Unit: %s (raw counts below)", desc.Unit)})
	}
	w.Write([]string{""})

	header := desc.Length - desc.Rows*desc.Cols*desc.CellWidth
	if header < 0 {
		header = 0
	}
	for i := 0; i < desc.Rows; i++ {
		row := make([]string, 0, desc.Cols)
		for j := 0; j < desc.Cols; j++ {
			addr := desc.Offset + header + (i*desc.Cols+j)*desc.CellWidth
			var v int
			if desc.CellWidth == 2 {
				u, err := as.ReadU16BE(addr)
				if err != nil {
					return err
				}
				v = int(u)
			} else {
				b, err := as.ReadByte(addr)
				if err != nil {
					return err
				}
				v = int(b)
			}
			row = append(row, fmt.Sprintf("%d", v))
		}
		w.Write(row)
	}

	return w.Error()
}
