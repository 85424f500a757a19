package sftpclient

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type Config struct {
	Host                  string
	Port                  int
	User                  string
	Pass                  string
	RemoteDir             string
	InsecureIgnoreHostKey bool
}

func (c *Config) applyDefaults() error {
	if c.Host == "" || c.User == "" || c.Pass == "" {
		return fmt.Errorf("sftp: missing env SFTP_HOST / SFTP_USER / SFTP_PASS")
	}
	if c.Port <= 0 {
		c.Port = 22
	}
	if c.RemoteDir == "" {
		c.RemoteDir = "/"
	}
	return nil
}

// connect dials in a goroutine so ctx can cancel a hanging handshake.
func connect(ctx context.Context, cfg Config) (*ssh.Client, *sftp.Client, error) {
	// Para dev ignoramos el host key; con el flag apagado usamos known_hosts.
	cb := ssh.InsecureIgnoreHostKey()
	if !cfg.InsecureIgnoreHostKey {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("sftp: resolve home for known_hosts: %w", err)
		}
		kh, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
		if err != nil {
			return nil, nil, fmt.Errorf("sftp: load known_hosts: %w", err)
		}
		cb = kh
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		HostKeyCallback: cb,
		Timeout:         20 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	type dialRes struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialRes, 1)
	go func() {
		c, err := ssh.Dial("tcp", addr, sshCfg)
		ch <- dialRes{client: c, err: err}
	}()

	var sshClient *ssh.Client
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, nil, fmt.Errorf("sftp: dial error: %w", r.err)
		}
		sshClient = r.client
	}

	sftpCli, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, fmt.Errorf("sftp: new client: %w", err)
	}
	return sshClient, sftpCli, nil
}

// UploadDir mirrors the whole local tree under cfg.RemoteDir, creating remote
// directories as it goes. One connection serves the entire walk.
func UploadDir(ctx context.Context, cfg Config, localDir string) error {
	if err := cfg.applyDefaults(); err != nil {
		return err
	}

	sshClient, sftpCli, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer sshClient.Close()
	defer sftpCli.Close()

	return filepath.WalkDir(localDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sftp: upload canceled: %w", err)
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		remote := path.Join(cfg.RemoteDir, filepath.ToSlash(rel))

		if d.IsDir() {
			if err := sftpCli.MkdirAll(remote); err != nil {
				return fmt.Errorf("sftp: mkdir %s: %w", remote, err)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(sftpCli, p, remote)
	})
}

// UploadFile pushes a single file into cfg.RemoteDir under remoteFileName.
func UploadFile(ctx context.Context, cfg Config, localPath string, remoteFileName string) error {
	if err := cfg.applyDefaults(); err != nil {
		return err
	}

	sshClient, sftpCli, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer sshClient.Close()
	defer sftpCli.Close()

	// Asegura dir destino
	if err := sftpCli.MkdirAll(cfg.RemoteDir); err != nil {
		return fmt.Errorf("sftp: mkdir %s: %w", cfg.RemoteDir, err)
	}

	return copyFile(sftpCli, localPath, path.Join(cfg.RemoteDir, remoteFileName))
}

func copyFile(sftpCli *sftp.Client, localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	dst, err := sftpCli.Create(remotePath)
	if err != nil {
		return fmt.Errorf("sftp: create remote file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("sftp: upload copy: %w", err)
	}
	return nil
}
