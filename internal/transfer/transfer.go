// Package transfer uploads delivery artifacts to the customer SFTP endpoint
// and reads back the remote file attributes used as proof of delivery.
package transfer

import (
	"context"
	"time"
)

// Endpoint describes how to reach the file-transfer server.
type Endpoint struct {
	Address        string // host:port
	User           string
	PrivateKeyPath string
	KnownHostsPath string // Empty disables host key verification
	Timeout        time.Duration
}

// Host returns Address without the port.
func (e Endpoint) Host() string {
	for i := len(e.Address) - 1; i >= 0; i-- {
		if e.Address[i] == ':' {
			return e.Address[:i]
		}
	}
	return e.Address
}

// Dialer opens transfer sessions.
type Dialer interface {
	Connect(ctx context.Context, ep Endpoint) (Session, error)
}

// Session is an open connection positioned in a remote working directory.
// A Session is not safe for concurrent use.
type Session interface {
	ChangeDirectory(dir string) error
	WorkingDirectory() string

	// Upload copies localPath to remotePath; relative remote paths resolve
	// against the working directory.
	Upload(ctx context.Context, localPath, remotePath string) error

	// ListAttributes lists the working directory.
	ListAttributes(ctx context.Context) ([]FileAttributes, error)

	Close() error
}

// FileAttributes are the remote file properties reported in confirmations.
type FileAttributes struct {
	Name       string
	AccessTime time.Time
	ModifyTime time.Time
	Size       int64
	IsDir      bool
}

// FindAttributes returns the entry named name.
func FindAttributes(entries []FileAttributes, name string) (FileAttributes, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return FileAttributes{}, false
}
