// Package accounts looks up per-ticket account identifiers in the
// account spreadsheet maintained by the delivery team.
package accounts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/license-delivery/internal/types"
)

// Lookup resolves the account record for a parent ticket key.
type Lookup interface {
	Lookup(ctx context.Context, ticketKey string) (types.AccountRecord, error)
}

// Columns names the spreadsheet column letters the workbook reads.
type Columns struct {
	Key            string
	MarketID       string
	BeaconID       string
	DataContractID string
}

// RowHandle identifies a 1-based spreadsheet row.
type RowHandle struct {
	Row int
}

// Workbook is an open account spreadsheet.
type Workbook struct {
	path    string
	sheet   string
	columns Columns
	file    *excelize.File
}

// FindWorkbook returns the first .xlsx file in dir by name, ignoring
// Office lock files.
func FindWorkbook(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read spreadsheet directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".xlsx") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no .xlsx workbook found in %s", dir)
	}

	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

// OpenDir opens the first workbook in dir.
func OpenDir(dir, sheet string, columns Columns) (*Workbook, error) {
	path, err := FindWorkbook(dir)
	if err != nil {
		return nil, err
	}
	return Open(path, sheet, columns)
}

// Open opens the workbook at path and checks that sheet exists.
func Open(path, sheet string, columns Columns) (*Workbook, error) {
	for name, col := range map[string]string{
		"key":              columns.Key,
		"market_id":        columns.MarketID,
		"beacon_id":        columns.BeaconID,
		"data_contract_id": columns.DataContractID,
	} {
		if _, err := excelize.ColumnNameToNumber(col); err != nil {
			return nil, fmt.Errorf("invalid %s column %q: %w", name, col, err)
		}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("workbook %s has no sheet %q", path, sheet)
	}

	return &Workbook{path: path, sheet: sheet, columns: columns, file: f}, nil
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// FindRowForTicket returns the first row whose key column equals ticketKey.
func (w *Workbook) FindRowForTicket(ticketKey string) (RowHandle, error) {
	keyIdx, err := excelize.ColumnNameToNumber(w.columns.Key)
	if err != nil {
		return RowHandle{}, err
	}

	rows, err := w.file.GetRows(w.sheet)
	if err != nil {
		return RowHandle{}, &LookupError{Key: ticketKey, Message: "failed to read rows", Cause: err}
	}

	want := strings.TrimSpace(ticketKey)
	for i, row := range rows {
		if keyIdx > len(row) {
			continue
		}
		if strings.TrimSpace(row[keyIdx-1]) == want {
			return RowHandle{Row: i + 1}, nil
		}
	}

	return RowHandle{}, &NotFoundError{Key: ticketKey, Sheet: w.sheet}
}

// ReadRow extracts the account identifiers from a row. Every field must be non-empty.
func (w *Workbook) ReadRow(h RowHandle) (types.AccountRecord, error) {
	read := func(col string) (string, error) {
		cell, err := excelize.CoordinatesToCellName(mustColumn(col), h.Row)
		if err != nil {
			return "", err
		}
		v, err := w.file.GetCellValue(w.sheet, cell)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", cell, err)
		}
		return strings.TrimSpace(v), nil
	}

	var rec types.AccountRecord
	var err error
	if rec.MarketID, err = read(w.columns.MarketID); err != nil {
		return types.AccountRecord{}, err
	}
	if rec.BeaconID, err = read(w.columns.BeaconID); err != nil {
		return types.AccountRecord{}, err
	}
	if rec.DataContractID, err = read(w.columns.DataContractID); err != nil {
		return types.AccountRecord{}, err
	}

	if err := rec.Validate(); err != nil {
		return types.AccountRecord{}, &LookupError{
			Message: fmt.Sprintf("row %d is incomplete", h.Row),
			Cause:   err,
		}
	}
	return rec, nil
}

// Lookup finds the row for ticketKey and reads its identifiers.
func (w *Workbook) Lookup(ctx context.Context, ticketKey string) (types.AccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.AccountRecord{}, err
	}

	h, err := w.FindRowForTicket(ticketKey)
	if err != nil {
		return types.AccountRecord{}, err
	}

	rec, err := w.ReadRow(h)
	if err != nil {
		if le, ok := err.(*LookupError); ok {
			le.Key = ticketKey
		}
		return types.AccountRecord{}, err
	}
	return rec, nil
}

// mustColumn converts a column letter already checked by Open.
func mustColumn(col string) int {
	n, _ := excelize.ColumnNameToNumber(col)
	return n
}
