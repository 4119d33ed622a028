package pipeline

import (
	"fmt"

	"github.com/jonathan/license-delivery/internal/config"
	"github.com/jonathan/license-delivery/internal/tracker"
	"github.com/jonathan/license-delivery/internal/transfer"
)

// OptionsFromConfig maps a validated configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, err := cfg.RunMode()
	if err != nil {
		return Options{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, fmt.Errorf("invalid timezone: %w", err)
	}
	namer, err := NewArtifactNamer(cfg.Artifact.DirTemplate, cfg.Artifact.NameTemplate)
	if err != nil {
		return Options{}, err
	}

	endpoint := transfer.Endpoint{
		Address:        cfg.SFTP.Address,
		User:           cfg.SFTP.User,
		KnownHostsPath: cfg.SFTP.KnownHosts,
		Timeout:        cfg.SFTP.Timeout(),
	}
	serverName := cfg.SFTP.ServerName
	if serverName == "" {
		serverName = endpoint.Host()
	}

	return Options{
		Mode: mode,
		Parents: tracker.ParentQuery{
			Projects:    cfg.Jira.Projects,
			IssueType:   cfg.Jira.IssueType,
			Statuses:    cfg.Jira.ParentStatuses,
			SummaryText: cfg.Jira.SummaryText,
		},
		ChildLabel:              cfg.Jira.ChildLabel,
		TransferStatus:          cfg.Jira.TransferStatus,
		NotificationStatus:      cfg.Jira.NotificationStatus,
		ProcessedLabel:          cfg.Jira.ProcessedLabel,
		TransitionID:            cfg.Jira.TransitionID,
		TransferComment:         cfg.Jira.TransferComment,
		NotificationComment:     cfg.Jira.NotificationComment,
		MentionUser:             cfg.Jira.MentionUser,
		ConfirmationAttachments: cfg.Jira.ConfirmationAttachments,
		Naming:                  cfg.Naming,
		Artifacts:               namer,
		Endpoint:                endpoint,
		KeyMaterial:             cfg.SFTP.PrivateKey,
		KeyDir:                  cfg.SFTP.KeyDir,
		RemoteDir:               cfg.SFTP.RemoteDir,
		ServerName:              serverName,
		Email: EmailSettings{
			Subject:    cfg.Email.Subject,
			From:       cfg.Email.From,
			To:         cfg.Email.To,
			Cc:         cfg.Email.Cc,
			Greeting:   cfg.Email.Greeting,
			SenderName: cfg.Email.SenderName,
			SignOff:    cfg.Email.SignOff,
			FileName:   cfg.Email.FileName,
		},
		BetweenPhases:       cfg.Delays.BetweenPhases(),
		ListingDelay:        cfg.Delays.Listing(),
		NotificationWorkers: cfg.NotificationWorkers,
		Location:            loc,
	}, nil
}
