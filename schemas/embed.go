// Package schemas embeds the JSON Schemas shipped with the delivery agent.
package schemas

import _ "embed"

// ConfigSchema is the JSON Schema for delivery agent config files.
//
//go:embed config.schema.json
var ConfigSchema string
