package config

import (
	"os"

	"github.com/jonathan/license-delivery/internal/naming"
)

// Environment variables read by ApplyEnv.
const (
	EnvJiraUser       = "JIRA_USER"
	EnvJiraToken      = "JIRA_TOKEN"
	EnvSFTPPrivateKey = "SFTP_PRIVATE_KEY"
	EnvSMTPUsername   = "SMTP_USERNAME"
	EnvSMTPPassword   = "SMTP_PASSWORD"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
)

// Defaults returns the values used for anything a config file leaves unset.
func Defaults() Config {
	return Config{
		Mode: "both",
		Jira: JiraConfig{
			ProcessedLabel:          "Email_Sent",
			TransitionID:            "621",
			StartDateField:          "customfield_10431",
			EndDateField:            "customfield_10418",
			TransferComment:         "The file has been loaded to the 1-Turn_Data_LicensingFiles directory on the ftp2.turn site.",
			NotificationComment:     "the report delivery email has been attached.",
			MentionUser:             "RevenueRecognition",
			ConfirmationAttachments: []string{"ftp_time_stamp.txt", "ftp_time_stamp.txt.png"},
			PageSize:                50,
		},
		SFTP: SFTPConfig{
			TimeoutSeconds: 30,
		},
		Email: EmailConfig{
			Port:           25,
			TLS:            "opportunistic",
			Greeting:       "Amobee Support,",
			SignOff:        "Thanks,",
			SenderName:     "Oracle",
			FileName:       "delivery_email",
			TimeoutSeconds: 30,
		},
		Spreadsheet: SpreadsheetConfig{
			Sheet:                "Sheet1",
			KeyColumn:            "A",
			MarketIDColumn:       "B",
			BeaconIDColumn:       "D",
			DataContractIDColumn: "G",
		},
		Artifact: ArtifactConfig{
			DirTemplate:  "zips/{{.ParentKey}}/{{.ChildKey}}",
			NameTemplate: "{{.Customer}}_{{.DateRange}}.zip",
		},
		Delays: DelayConfig{
			BetweenPhasesSeconds: 10,
			ListingSeconds:       5,
		},
		Naming: naming.DefaultRules(),
		Log: LogConfig{
			Dir:           "logs",
			AppName:       "delivery_agent",
			Level:         "info",
			RetentionDays: 30,
		},
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	setString(&result.Mode, defaults.Mode)
	setString(&result.Timezone, defaults.Timezone)
	setString(&result.DatabaseURL, defaults.DatabaseURL)
	setString(&result.RedisAddr, defaults.RedisAddr)
	setString(&result.PushgatewayURL, defaults.PushgatewayURL)
	setInt(&result.NotificationWorkers, defaults.NotificationWorkers)

	j, dj := &result.Jira, defaults.Jira
	setString(&j.URL, dj.URL)
	setString(&j.User, dj.User)
	setString(&j.Token, dj.Token)
	setStrings(&j.Projects, dj.Projects)
	setString(&j.IssueType, dj.IssueType)
	setStrings(&j.ParentStatuses, dj.ParentStatuses)
	setString(&j.SummaryText, dj.SummaryText)
	setString(&j.ChildLabel, dj.ChildLabel)
	setString(&j.TransferStatus, dj.TransferStatus)
	setString(&j.NotificationStatus, dj.NotificationStatus)
	setString(&j.ProcessedLabel, dj.ProcessedLabel)
	setString(&j.TransitionID, dj.TransitionID)
	setString(&j.StartDateField, dj.StartDateField)
	setString(&j.EndDateField, dj.EndDateField)
	setString(&j.TransferComment, dj.TransferComment)
	setString(&j.NotificationComment, dj.NotificationComment)
	setString(&j.MentionUser, dj.MentionUser)
	setStrings(&j.ConfirmationAttachments, dj.ConfirmationAttachments)
	setInt(&j.PageSize, dj.PageSize)

	s, ds := &result.SFTP, defaults.SFTP
	setString(&s.Address, ds.Address)
	setString(&s.User, ds.User)
	setString(&s.PrivateKey, ds.PrivateKey)
	setString(&s.KeyDir, ds.KeyDir)
	setString(&s.KnownHosts, ds.KnownHosts)
	setString(&s.RemoteDir, ds.RemoteDir)
	setString(&s.ServerName, ds.ServerName)
	setInt(&s.TimeoutSeconds, ds.TimeoutSeconds)

	e, de := &result.Email, defaults.Email
	setString(&e.Host, de.Host)
	setInt(&e.Port, de.Port)
	setString(&e.TLS, de.TLS)
	setString(&e.Username, de.Username)
	setString(&e.Password, de.Password)
	setString(&e.From, de.From)
	setStrings(&e.To, de.To)
	setStrings(&e.Cc, de.Cc)
	setString(&e.Subject, de.Subject)
	setString(&e.Greeting, de.Greeting)
	setString(&e.SignOff, de.SignOff)
	setString(&e.SenderName, de.SenderName)
	setString(&e.FileName, de.FileName)
	setInt(&e.TimeoutSeconds, de.TimeoutSeconds)

	sp, dsp := &result.Spreadsheet, defaults.Spreadsheet
	setString(&sp.Dir, dsp.Dir)
	setString(&sp.Sheet, dsp.Sheet)
	setString(&sp.KeyColumn, dsp.KeyColumn)
	setString(&sp.MarketIDColumn, dsp.MarketIDColumn)
	setString(&sp.BeaconIDColumn, dsp.BeaconIDColumn)
	setString(&sp.DataContractIDColumn, dsp.DataContractIDColumn)

	setString(&result.Artifact.DirTemplate, defaults.Artifact.DirTemplate)
	setString(&result.Artifact.NameTemplate, defaults.Artifact.NameTemplate)

	// A zero delay is a valid setting, so only a config without any delays
	// block picks up the defaults.
	if result.Delays == (DelayConfig{}) {
		result.Delays = defaults.Delays
	}

	if len(result.Naming.VariableArity) == 0 && len(result.Naming.FixedArity) == 0 {
		result.Naming = defaults.Naming
	}

	l, dl := &result.Log, defaults.Log
	setString(&l.Dir, dl.Dir)
	setString(&l.AppName, dl.AppName)
	setString(&l.Level, dl.Level)
	setInt(&l.RetentionDays, dl.RetentionDays)

	return result
}

// ApplyEnv overlays secrets and infrastructure URLs from the environment.
// Set variables win over file values.
func (c *Config) ApplyEnv() {
	envString(&c.Jira.User, EnvJiraUser)
	envString(&c.Jira.Token, EnvJiraToken)
	envString(&c.SFTP.PrivateKey, EnvSFTPPrivateKey)
	envString(&c.Email.Username, EnvSMTPUsername)
	envString(&c.Email.Password, EnvSMTPPassword)
	envString(&c.DatabaseURL, EnvDatabaseURL)
	envString(&c.RedisAddr, EnvRedisAddr)
	envString(&c.PushgatewayURL, EnvPushgatewayURL)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setStrings(dst *[]string, def []string) {
	if len(*dst) == 0 && len(def) > 0 {
		*dst = append([]string(nil), def...)
	}
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
