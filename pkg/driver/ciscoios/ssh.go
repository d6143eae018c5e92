package ciscoios

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/ssh"
)

// sshTransport adapts an interactive SSH shell to the expect session.
// Usable once initial setup has generated key material on the switch;
// the bootstrap path always uses telnet.
type sshTransport struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

func dialSSH(address, username, password string, timeout time.Duration) (*sshTransport, error) {
	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	client, err := ssh.Dial("tcp", address, cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", address, err)
	}
	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ssh session: %w", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 9600,
		ssh.TTY_OP_OSPEED: 9600,
	}
	if err := session.RequestPty("vt100", 0, 80, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("ssh pty: %w", err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, err
	}
	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("ssh shell: %w", err)
	}
	return &sshTransport{client: client, session: session, stdin: stdin, stdout: stdout}, nil
}

func (t *sshTransport) Read(p []byte) (int, error) {
	return t.stdout.Read(p)
}

func (t *sshTransport) Write(p []byte) (int, error) {
	return t.stdin.Write(p)
}

func (t *sshTransport) Close() error {
	t.session.Close()
	return t.client.Close()
}
