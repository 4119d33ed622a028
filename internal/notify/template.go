package notify

import (
	"fmt"
	"strings"
	"text/template"
)

// BodyData fills the notification template.
type BodyData struct {
	Greeting       string
	SenderName     string
	SignOff        string
	DeliveredOn    string // YYYYMMDD
	MarketID       string
	BeaconID       string
	DataContractID string
	Server         string
	FileName       string
	DateRange      string
}

const bodyTemplate = `{{.Greeting}}

{{.SenderName}} has delivered offline purchase data on {{.DeliveredOn}}. Please find details below:

Market ID: {{.MarketID}}

Beacon ID: {{.BeaconID}}

Data Contract ID: {{.DataContractID}}

sFTP Directory: {{.Server}}

Filename: {{.FileName}}

Data Date Range: {{.DateRange}}

{{.SignOff}}
{{.SenderName}} Team
`

var body = template.Must(template.New("body").Option("missingkey=error").Parse(bodyTemplate))

// RenderBody renders the plain-text notification body.
func RenderBody(data BodyData) (string, error) {
	var sb strings.Builder
	if err := body.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render notification body: %w", err)
	}
	return sb.String(), nil
}
