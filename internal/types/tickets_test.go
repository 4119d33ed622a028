package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestDateRange_String(t *testing.T) {
	r := DateRange{Start: date(t, "2024-01-01"), End: date(t, "2024-01-07")}
	assert.Equal(t, "2024-01-01_2024-01-07", r.String())
	assert.Equal(t, "", DateRange{}.String())
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "valid", input: "2024-03-01_2024-03-31"},
		{name: "single day", input: "2024-03-01_2024-03-01"},
		{name: "missing separator", input: "2024-03-01", wantErr: "missing separator"},
		{name: "bad start", input: "2024-3-1_2024-03-31", wantErr: "invalid range start"},
		{name: "bad end", input: "2024-03-01_tomorrow", wantErr: "invalid range end"},
		{name: "reversed", input: "2024-03-31_2024-03-01", wantErr: "end before start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseDateRange(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, r.String())
		})
	}
}

func TestTicketFields_DateRange(t *testing.T) {
	start := date(t, "2024-02-01")
	end := date(t, "2024-02-29")

	f := TicketFields{StartDate: &start, EndDate: &end}
	r, err := f.DateRange()
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01_2024-02-29", r.String())

	_, err = (&TicketFields{StartDate: &start}).DateRange()
	assert.Error(t, err)
}

func TestAccountRecord_Validate(t *testing.T) {
	valid := AccountRecord{MarketID: "1001", BeaconID: "B-77", DataContractID: "DC-9"}
	assert.NoError(t, valid.Validate())

	missing := AccountRecord{MarketID: "1001", DataContractID: "DC-9"}
	err := missing.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BeaconID")
}

func TestArtifact_Path(t *testing.T) {
	a := Artifact{Dir: "/data/zips/CAM-1/CAM-2", FileName: "Acme_Corp_2024-01-01_2024-01-07.zip"}
	assert.Equal(t, "/data/zips/CAM-1/CAM-2/Acme_Corp_2024-01-01_2024-01-07.zip", a.Path())
}
