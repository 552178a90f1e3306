// Package csvout writes tables to CSV files on disk.
package csvout

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"flatcsv/internal/tabular"
)

// WriteTable writes t to outputPath as a CSV file with a header row,
// creating parent directories as needed. The data goes to a temp file in
// the target directory first and is renamed into place, so readers never
// observe a partially written file.
func WriteTable(outputPath string, t *tabular.Table) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".flatcsv-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	writeErr := writeCSV(tmp, t)
	closeErr := tmp.Close()

	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpName)
		return closeErr
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func writeCSV(w io.Writer, t *tabular.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	row := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, col := range t.Columns {
			row[i] = tabular.CellString(r[col])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
