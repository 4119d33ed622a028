package transfer

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPDialer connects over SSH with public key authentication.
type SFTPDialer struct {
	Logger *zap.Logger
}

var _ Dialer = (*SFTPDialer)(nil)

// Connect implements Dialer.
func (d *SFTPDialer) Connect(ctx context.Context, ep Endpoint) (Session, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	keyBytes, err := os.ReadFile(ep.PrivateKeyPath)
	if err != nil {
		return nil, &ConnectError{Address: ep.Address, Message: "failed to read key file", Cause: err}
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, &ConnectError{Address: ep.Address, Message: "failed to parse private key", Cause: err}
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if ep.KnownHostsPath != "" {
		hostKeyCallback, err = knownhosts.New(ep.KnownHostsPath)
		if err != nil {
			return nil, &ConnectError{Address: ep.Address, Message: "failed to load known_hosts", Cause: err}
		}
	} else {
		logger.Warn("sftp host key verification disabled", zap.String("address", ep.Address))
	}

	config := &ssh.ClientConfig{
		User:            ep.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         ep.Timeout,
	}

	dialer := net.Dialer{Timeout: ep.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", ep.Address)
	if err != nil {
		return nil, &ConnectError{Address: ep.Address, Message: "dial failed", Cause: err}
	}

	// Bound the handshake by the same timeout as the dial.
	if ep.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(ep.Timeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, ep.Address, config)
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Address: ep.Address, Message: "ssh handshake failed", Cause: err}
	}
	_ = conn.SetDeadline(time.Time{})

	sshClient := ssh.NewClient(sshConn, chans, reqs)
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, &ConnectError{Address: ep.Address, Message: "sftp subsystem failed", Cause: err}
	}

	session, err := newSFTPSession(client, ep.Address, sshClient)
	if err != nil {
		return nil, err
	}
	logger.Info("sftp session opened",
		zap.String("address", ep.Address),
		zap.String("user", ep.User),
		zap.String("cwd", session.cwd))
	return session, nil
}

type sftpSession struct {
	client  *sftp.Client
	address string
	closers []io.Closer
	cwd     string
}

// newSFTPSession wraps client, starting in the server's initial directory.
// closers run after the SFTP client is closed.
func newSFTPSession(client *sftp.Client, address string, closers ...io.Closer) (*sftpSession, error) {
	cwd, err := client.Getwd()
	if err != nil {
		_ = client.Close()
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, &ConnectError{Address: address, Message: "failed to resolve working directory", Cause: err}
	}
	return &sftpSession{client: client, address: address, closers: closers, cwd: cwd}, nil
}

func (s *sftpSession) resolve(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(s.cwd, p)
}

// ChangeDirectory implements Session. pkg/sftp has no chdir, so the working
// directory is tracked client side after checking it exists.
func (s *sftpSession) ChangeDirectory(dir string) error {
	target := s.resolve(dir)
	info, err := s.client.Stat(target)
	if err != nil {
		return &ConnectError{Address: s.address, Message: "cannot change directory to " + target, Cause: err}
	}
	if !info.IsDir() {
		return &ConnectError{Address: s.address, Message: target + " is not a directory"}
	}
	s.cwd = target
	return nil
}

func (s *sftpSession) WorkingDirectory() string {
	return s.cwd
}

// Upload implements Session.
func (s *sftpSession) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer src.Close()

	target := s.resolve(remotePath)
	dst, err := s.client.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create remote %s: %w", target, err)
	}
	if _, err := dst.ReadFrom(src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to upload %s: %w", target, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to finish upload %s: %w", target, err)
	}
	return nil
}

// ListAttributes implements Session.
func (s *sftpSession) ListAttributes(ctx context.Context) ([]FileAttributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := s.client.ReadDir(s.cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.cwd, err)
	}

	out := make([]FileAttributes, 0, len(infos))
	for _, info := range infos {
		attrs := FileAttributes{
			Name:       info.Name(),
			ModifyTime: info.ModTime(),
			AccessTime: info.ModTime(),
			Size:       info.Size(),
			IsDir:      info.IsDir(),
		}
		if st, ok := info.Sys().(*sftp.FileStat); ok {
			attrs.AccessTime = time.Unix(int64(st.Atime), 0)
			attrs.ModifyTime = time.Unix(int64(st.Mtime), 0)
		}
		out = append(out, attrs)
	}
	return out, nil
}

// Close implements Session.
func (s *sftpSession) Close() error {
	err := s.client.Close()
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
