package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBody(t *testing.T) {
	got, err := RenderBody(BodyData{
		Greeting:       "Amobee Support,",
		SenderName:     "Oracle",
		SignOff:        "Thanks,",
		DeliveredOn:    "20240304",
		MarketID:       "1001",
		BeaconID:       "B-77",
		DataContractID: "DC-9",
		Server:         "ftp2.example.com",
		FileName:       "Acme_Corp_2024-02-01_2024-02-29.zip",
		DateRange:      "2024-02-01_2024-02-29",
	})
	require.NoError(t, err)

	expected := `Amobee Support,

Oracle has delivered offline purchase data on 20240304. Please find details below:

Market ID: 1001

Beacon ID: B-77

Data Contract ID: DC-9

sFTP Directory: ftp2.example.com

Filename: Acme_Corp_2024-02-01_2024-02-29.zip

Data Date Range: 2024-02-01_2024-02-29

Thanks,
Oracle Team
`
	assert.Equal(t, expected, got)
}
