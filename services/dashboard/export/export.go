package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gsnchez/btc-analytics/services/dashboard/metrics"
	"github.com/xuri/excelize/v2"
)

// Excel rejects sheet names longer than 31 characters
const maxSheetNameLength = 31

const timeColumnHeader = "time"

// WriteCSV serializes the table row-by-row against its time index: a header line followed by
// one line per row, timestamps in RFC 3339 UTC. An empty table produces a header-only output
func WriteCSV(w io.Writer, table *metrics.Table) error {
	writer := csv.NewWriter(w)

	err := writer.Write(header(table))
	if err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for row := 0; row < table.Rows(); row++ {
		err = writer.Write(record(table, row))
		if err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", row, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteXLSX serializes the table into a single-sheet spreadsheet with the same layout as the
// CSV output. The sheet name is truncated to the Excel limit
func WriteXLSX(w io.Writer, sheetName string, table *metrics.Table) error {
	if len(sheetName) == 0 {
		sheetName = "data"
	}
	if len(sheetName) > maxSheetNameLength {
		sheetName = sheetName[:maxSheetNameLength]
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	err := f.SetSheetName("Sheet1", sheetName)
	if err != nil {
		return fmt.Errorf("failed to name the sheet: %w", err)
	}

	err = writeXLSXRow(f, sheetName, 1, header(table))
	if err != nil {
		return err
	}

	for row := 0; row < table.Rows(); row++ {
		err = writeXLSXRow(f, sheetName, row+2, record(table, row))
		if err != nil {
			return err
		}
	}

	err = f.Write(w)
	if err != nil {
		return fmt.Errorf("failed to write the workbook: %w", err)
	}

	return nil
}

func writeXLSXRow(f *excelize.File, sheetName string, rowNum int, cells []string) error {
	for i, value := range cells {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return fmt.Errorf("failed to compute the cell coordinates: %w", err)
		}

		err = f.SetCellValue(sheetName, cell, value)
		if err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}

	return nil
}

func header(table *metrics.Table) []string {
	cells := make([]string, 0, len(table.Columns)+1)
	cells = append(cells, timeColumnHeader)
	cells = append(cells, table.Columns...)

	return cells
}

func record(table *metrics.Table, row int) []string {
	cells := make([]string, 0, len(table.Columns)+1)
	if row < len(table.Index) {
		cells = append(cells, table.Index[row].UTC().Format(time.RFC3339))
	} else {
		cells = append(cells, strconv.Itoa(row))
	}

	for _, col := range table.Columns {
		cells = append(cells, strconv.FormatFloat(table.Values[col][row], 'f', -1, 64))
	}

	return cells
}
