// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/license-delivery/internal/naming"
	"github.com/jonathan/license-delivery/internal/schemas"
	"github.com/jonathan/license-delivery/internal/types"
	configschema "github.com/jonathan/license-delivery/schemas"
)

// Config represents the delivery agent configuration loaded from a JSON or YAML file.
// Secrets are normally left empty in the file and supplied through ApplyEnv.
type Config struct {
	Mode                string `json:"mode,omitempty" yaml:"mode,omitempty" validate:"required"`
	Timezone            string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	NotificationWorkers int    `json:"notification_workers,omitempty" yaml:"notification_workers,omitempty" validate:"gte=0"`

	Jira        JiraConfig        `json:"jira" yaml:"jira"`
	SFTP        SFTPConfig        `json:"sftp" yaml:"sftp"`
	Email       EmailConfig       `json:"email" yaml:"email"`
	Spreadsheet SpreadsheetConfig `json:"spreadsheet" yaml:"spreadsheet"`
	Artifact    ArtifactConfig    `json:"artifact" yaml:"artifact"`
	Delays      DelayConfig       `json:"delays" yaml:"delays"`
	Naming      naming.Rules      `json:"naming" yaml:"naming"`
	Log         LogConfig         `json:"log" yaml:"log"`

	// Optional infrastructure
	DatabaseURL    string `json:"database_url,omitempty" yaml:"database_url,omitempty"`       // PostgreSQL run ledger
	RedisAddr      string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`           // Cross-host duplicate-run guard
	PushgatewayURL string `json:"pushgateway_url,omitempty" yaml:"pushgateway_url,omitempty"` // Prometheus Pushgateway
}

// JiraConfig holds the issue tracker connection and the query vocabulary.
type JiraConfig struct {
	URL   string `json:"url,omitempty" yaml:"url,omitempty" validate:"required,url"`
	User  string `json:"user,omitempty" yaml:"user,omitempty" validate:"required"`
	Token string `json:"token,omitempty" yaml:"token,omitempty" validate:"required"`

	Projects           []string `json:"projects,omitempty" yaml:"projects,omitempty" validate:"required,min=1,dive,required"`
	IssueType          string   `json:"issue_type,omitempty" yaml:"issue_type,omitempty" validate:"required"`
	ParentStatuses     []string `json:"parent_statuses,omitempty" yaml:"parent_statuses,omitempty" validate:"required,min=1,dive,required"`
	SummaryText        string   `json:"summary_text,omitempty" yaml:"summary_text,omitempty" validate:"required"`
	ChildLabel         string   `json:"child_label,omitempty" yaml:"child_label,omitempty" validate:"required"`
	TransferStatus     string   `json:"transfer_status,omitempty" yaml:"transfer_status,omitempty"`
	NotificationStatus string   `json:"notification_status,omitempty" yaml:"notification_status,omitempty"`
	ProcessedLabel     string   `json:"processed_label,omitempty" yaml:"processed_label,omitempty" validate:"required"`
	TransitionID       string   `json:"transition_id,omitempty" yaml:"transition_id,omitempty"`
	StartDateField     string   `json:"start_date_field,omitempty" yaml:"start_date_field,omitempty" validate:"required,startswith=customfield_"`
	EndDateField       string   `json:"end_date_field,omitempty" yaml:"end_date_field,omitempty" validate:"required,startswith=customfield_"`

	TransferComment         string   `json:"transfer_comment,omitempty" yaml:"transfer_comment,omitempty"`
	NotificationComment     string   `json:"notification_comment,omitempty" yaml:"notification_comment,omitempty"`
	MentionUser             string   `json:"mention_user,omitempty" yaml:"mention_user,omitempty"`
	ConfirmationAttachments []string `json:"confirmation_attachments,omitempty" yaml:"confirmation_attachments,omitempty" validate:"min=1,dive,required"`
	PageSize                int      `json:"page_size,omitempty" yaml:"page_size,omitempty" validate:"gte=0,lte=1000"`
}

// SFTPConfig describes the file-transfer endpoint.
type SFTPConfig struct {
	Address        string `json:"address,omitempty" yaml:"address,omitempty"` // host:port
	User           string `json:"user,omitempty" yaml:"user,omitempty"`
	PrivateKey     string `json:"private_key,omitempty" yaml:"private_key,omitempty"` // PEM key material
	KeyDir         string `json:"key_dir,omitempty" yaml:"key_dir,omitempty"`         // Where the transient key file is written
	KnownHosts     string `json:"known_hosts,omitempty" yaml:"known_hosts,omitempty"` // Empty disables host key checking
	RemoteDir      string `json:"remote_dir,omitempty" yaml:"remote_dir,omitempty"`
	ServerName     string `json:"server_name,omitempty" yaml:"server_name,omitempty"` // Shown to customers; defaults to the address host
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// Timeout returns the dial timeout.
func (c SFTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EmailConfig describes the mail relay and the notification message.
type EmailConfig struct {
	Host           string   `json:"host,omitempty" yaml:"host,omitempty"`
	Port           int      `json:"port,omitempty" yaml:"port,omitempty"`
	TLS            string   `json:"tls,omitempty" yaml:"tls,omitempty" validate:"omitempty,oneof=none opportunistic mandatory"`
	Username       string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password       string   `json:"password,omitempty" yaml:"password,omitempty"`
	From           string   `json:"from,omitempty" yaml:"from,omitempty"`
	To             []string `json:"to,omitempty" yaml:"to,omitempty"`
	Cc             []string `json:"cc,omitempty" yaml:"cc,omitempty"`
	Subject        string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	Greeting       string   `json:"greeting,omitempty" yaml:"greeting,omitempty"`
	SignOff        string   `json:"signoff,omitempty" yaml:"signoff,omitempty"`
	SenderName     string   `json:"sender_name,omitempty" yaml:"sender_name,omitempty"`
	FileName       string   `json:"file_name,omitempty" yaml:"file_name,omitempty"` // Attachment name without extension
	TimeoutSeconds int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// Timeout returns the relay timeout.
func (c EmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SpreadsheetConfig locates the account workbook and its columns.
type SpreadsheetConfig struct {
	Dir                  string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Sheet                string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	KeyColumn            string `json:"key_column,omitempty" yaml:"key_column,omitempty" validate:"required,uppercase"`
	MarketIDColumn       string `json:"market_id_column,omitempty" yaml:"market_id_column,omitempty" validate:"required,uppercase"`
	BeaconIDColumn       string `json:"beacon_id_column,omitempty" yaml:"beacon_id_column,omitempty" validate:"required,uppercase"`
	DataContractIDColumn string `json:"data_contract_id_column,omitempty" yaml:"data_contract_id_column,omitempty" validate:"required,uppercase"`
}

// ArtifactConfig holds the text/template strings for the deliverable's location.
// Templates see .Customer, .ParentKey, .ChildKey and .DateRange.
type ArtifactConfig struct {
	DirTemplate  string `json:"dir_template,omitempty" yaml:"dir_template,omitempty" validate:"required"`
	NameTemplate string `json:"name_template,omitempty" yaml:"name_template,omitempty" validate:"required"`
}

// DelayConfig holds the settle intervals in seconds.
type DelayConfig struct {
	BetweenPhasesSeconds int `json:"between_phases_seconds,omitempty" yaml:"between_phases_seconds,omitempty" validate:"gte=0"`
	ListingSeconds       int `json:"listing_seconds,omitempty" yaml:"listing_seconds,omitempty" validate:"gte=0"`
}

// BetweenPhases is the wait between the transfer and notification phases.
func (d DelayConfig) BetweenPhases() time.Duration {
	return time.Duration(d.BetweenPhasesSeconds) * time.Second
}

// Listing is the wait between an upload and the remote directory listing.
func (d DelayConfig) Listing() time.Duration {
	return time.Duration(d.ListingSeconds) * time.Second
}

// LogConfig controls the dated log file and its retention.
type LogConfig struct {
	Dir           string `json:"dir,omitempty" yaml:"dir,omitempty"`
	AppName       string `json:"app_name,omitempty" yaml:"app_name,omitempty"`
	Level         string `json:"level,omitempty" yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	RetentionDays int    `json:"retention_days,omitempty" yaml:"retention_days,omitempty" validate:"gte=0"`
}

// Retention returns the log retention window.
func (c LogConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// The raw document is checked against the embedded config schema before decoding.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		if err := schemas.ValidateDocument(configschema.ConfigSchema, doc); err != nil {
			return nil, fmt.Errorf("config %s does not match schema: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if !json.Valid(data) {
			return nil, fmt.Errorf("failed to parse config JSON: invalid document")
		}
		if err := schemas.ValidateJSONString(configschema.ConfigSchema, string(data)); err != nil {
			return nil, fmt.Errorf("config %s does not match schema: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the merged configuration is complete and consistent
// for the selected run mode.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	mode, err := c.RunMode()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("config error: invalid timezone %q: %w", c.Timezone, err)
		}
	}

	for name, text := range map[string]string{
		"artifact.dir_template":  c.Artifact.DirTemplate,
		"artifact.name_template": c.Artifact.NameTemplate,
	} {
		if _, err := template.New(name).Option("missingkey=error").Parse(text); err != nil {
			return fmt.Errorf("config error: '%s' is not a valid template: %w", name, err)
		}
	}

	if mode.IncludesTransfer() {
		if c.Jira.TransferStatus == "" {
			return fmt.Errorf("config error: 'jira.transfer_status' is required for transfer runs")
		}
		if c.Jira.TransitionID == "" {
			return fmt.Errorf("config error: 'jira.transition_id' is required for transfer runs")
		}
		if c.SFTP.Address == "" || c.SFTP.User == "" {
			return fmt.Errorf("config error: 'sftp.address' and 'sftp.user' are required for transfer runs")
		}
		if c.SFTP.PrivateKey == "" {
			return fmt.Errorf("config error: sftp private key is required for transfer runs (set %s)", EnvSFTPPrivateKey)
		}
		if c.SFTP.RemoteDir == "" {
			return fmt.Errorf("config error: 'sftp.remote_dir' is required for transfer runs")
		}
	}

	if mode.IncludesNotification() {
		if c.Jira.NotificationStatus == "" {
			return fmt.Errorf("config error: 'jira.notification_status' is required for notification runs")
		}
		if c.Email.Host == "" || c.Email.From == "" || len(c.Email.To) == 0 {
			return fmt.Errorf("config error: 'email.host', 'email.from' and 'email.to' are required for notification runs")
		}
		if err := validate.Var(c.Email.From, "email"); err != nil {
			return fmt.Errorf("config error: 'email.from' is not an address: %s", c.Email.From)
		}
		if err := validate.Var(c.Email.To, "dive,email"); err != nil {
			return fmt.Errorf("config error: 'email.to' contains an invalid address")
		}
		if err := validate.Var(c.Email.Cc, "dive,email"); err != nil {
			return fmt.Errorf("config error: 'email.cc' contains an invalid address")
		}
	}

	// Enrichment runs in every mode.
	if c.Spreadsheet.Dir == "" {
		return fmt.Errorf("config error: 'spreadsheet.dir' is required")
	}
	if info, err := os.Stat(c.Spreadsheet.Dir); err != nil || !info.IsDir() {
		return fmt.Errorf("config error: spreadsheet directory not found: %s", c.Spreadsheet.Dir)
	}

	return nil
}

// RunMode parses the configured mode.
func (c *Config) RunMode() (types.RunMode, error) {
	return types.ParseRunMode(c.Mode)
}

// Location returns the configured time zone, or UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
