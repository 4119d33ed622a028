package accounts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jonathan/license-delivery/internal/types"
)

var defaultColumns = Columns{Key: "A", MarketID: "B", BeaconID: "D", DataContractID: "G"}

// writeWorkbook saves rows (starting at A1) to dir/name using Sheet1.
func writeWorkbook(t *testing.T, dir, name string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func sampleRows() [][]any {
	return [][]any{
		{"Ticket", "Market", "Name", "Beacon", "", "", "Contract"},
		{"CAM-101", "1001", "Acme", "B-77", "", "", "DC-9"},
		{" CAM-102 ", 2002, "Globex", "B-88", "", "", "DC-10"},
		{"CAM-103", "3003", "Initech", "", "", "", "DC-11"},
	}
}

func TestFindWorkbook(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "b_accounts.xlsx", sampleRows())
	writeWorkbook(t, dir, "a_accounts.xlsx", sampleRows())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$a_accounts.xlsx"), []byte("lock"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	path, err := FindWorkbook(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a_accounts.xlsx"), path)
}

func TestFindWorkbook_Empty(t *testing.T) {
	_, err := FindWorkbook(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .xlsx workbook")
}

func TestWorkbook_Lookup(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "accounts.xlsx", sampleRows())

	wb, err := OpenDir(dir, "Sheet1", defaultColumns)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	tests := []struct {
		name     string
		key      string
		expected types.AccountRecord
	}{
		{"string cells", "CAM-101", types.AccountRecord{MarketID: "1001", BeaconID: "B-77", DataContractID: "DC-9"}},
		{"padded key and numeric cell", "CAM-102", types.AccountRecord{MarketID: "2002", BeaconID: "B-88", DataContractID: "DC-10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := wb.Lookup(context.Background(), tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rec)
		})
	}
}

func TestWorkbook_FindRowForTicket(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir, "accounts.xlsx", sampleRows())

	wb, err := Open(path, "Sheet1", defaultColumns)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	h, err := wb.FindRowForTicket("CAM-103")
	require.NoError(t, err)
	assert.Equal(t, RowHandle{Row: 4}, h)

	_, err = wb.FindRowForTicket("CAM-999")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "CAM-999", nf.Key)
}

func TestWorkbook_LookupIncompleteRow(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "accounts.xlsx", sampleRows())

	wb, err := OpenDir(dir, "Sheet1", defaultColumns)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	_, err = wb.Lookup(context.Background(), "CAM-103")
	require.Error(t, err)
	var le *LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "CAM-103", le.Key)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestWorkbook_LookupCancelled(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, dir, "accounts.xlsx", sampleRows())

	wb, err := OpenDir(dir, "Sheet1", defaultColumns)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = wb.Lookup(ctx, "CAM-101")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir, "accounts.xlsx", sampleRows())

	_, err := Open(path, "Accounts", defaultColumns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sheet")

	bad := defaultColumns
	bad.BeaconID = "4"
	_, err = Open(path, "Sheet1", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid beacon_id column")
}
