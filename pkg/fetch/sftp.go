package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/user"
	"time"

	"github.com/arthur-debert/dopkg/pkg/config"
	"github.com/arthur-debert/dopkg/pkg/paths"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPTransport reads sftp://user@host[:port]/path URLs over SSH. Host keys
// are always checked against known_hosts.
type SFTPTransport struct {
	cfg config.SFTPConfig
}

// NewSFTPTransport returns an SFTP transport
func NewSFTPTransport(cfg config.SFTPConfig) *SFTPTransport {
	return &SFTPTransport{cfg: cfg}
}

func (t *SFTPTransport) clientConfig(u *url.URL) (*ssh.ClientConfig, error) {
	keyData, err := os.ReadFile(paths.ExpandHome(t.cfg.KeyFile))
	if err != nil {
		return nil, Permanent(fmt.Errorf("read ssh key: %w", err))
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, Permanent(fmt.Errorf("parse ssh key: %w", err))
	}

	hostKeys, err := knownhosts.New(paths.ExpandHome(t.cfg.KnownHosts))
	if err != nil {
		return nil, Permanent(fmt.Errorf("load known_hosts: %w", err))
	}

	username := u.User.Username()
	if username == "" {
		if current, err := user.Current(); err == nil {
			username = current.Username
		}
	}

	return &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         15 * time.Second,
	}, nil
}

// Open dials the host and opens the remote file. The returned reader closes
// the SFTP session and the SSH connection.
func (t *SFTPTransport) Open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	cfg, err := t.clientConfig(u)
	if err != nil {
		return nil, err
	}

	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "22")
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	f, err := sftpClient.Open(u.Path)
	if err != nil {
		_ = sftpClient.Close()
		_ = client.Close()
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, Permanent(err)
		}
		return nil, err
	}

	// Closing the connection unblocks an in-flight read on cancellation
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	return &sftpReader{File: f, closers: []func() error{
		func() error { stop(); return nil },
		sftpClient.Close,
		client.Close,
	}}, nil
}

type sftpReader struct {
	*sftp.File
	closers []func() error
}

func (r *sftpReader) Close() error {
	err := r.File.Close()
	for _, c := range r.closers {
		_ = c()
	}
	return err
}
