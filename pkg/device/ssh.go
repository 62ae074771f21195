/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package device

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/carverauto/fleetvet/pkg/logger"
)

const defaultSSHTimeout = 10 * time.Second

// jsonSuffixes maps a platform tag to the CLI pipe that requests structured
// output. Platforms not listed here only support FormatText.
var jsonSuffixes = map[string]string{
	"junos":   " | display json",
	"eos":     " | json",
	"nxos":    " | json",
	"srlinux": " | as json",
}

// SSHDialer opens SSH sessions to devices using the credentials on the
// handle.
type SSHDialer struct {
	timeout time.Duration
	logger  logger.Logger
}

// NewSSHDialer creates a dialer with the given per-dial timeout. A zero
// timeout falls back to 10s.
func NewSSHDialer(timeout time.Duration, log logger.Logger) *SSHDialer {
	if timeout == 0 {
		timeout = defaultSSHTimeout
	}

	return &SSHDialer{timeout: timeout, logger: log}
}

// Dial implements Dialer.
func (d *SSHDialer) Dial(ctx context.Context, dev *Device) (Session, error) {
	cfg, err := d.clientConfig(dev)
	if err != nil {
		return nil, err
	}

	nd := net.Dialer{Timeout: d.timeout}

	conn, err := nd.DialContext(ctx, "tcp", dev.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s (%s): %w", dev.Host, dev.Addr, err)
	}

	// Bound the handshake too; a listener that accepts and then hangs must
	// not stall the probe past its deadline.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, dev.Addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", dev.Host, err)
	}

	_ = conn.SetDeadline(time.Time{})

	d.logger.Debug().
		Str("device", dev.Host).
		Str("addr", dev.Addr).
		Msg("SSH session established")

	return &sshSession{
		client:   ssh.NewClient(sshConn, chans, reqs),
		platform: dev.Platform,
		host:     dev.Host,
		logger:   d.logger,
	}, nil
}

func (d *SSHDialer) clientConfig(dev *Device) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if dev.Creds.KeyFile != "" {
		keyBytes, err := os.ReadFile(dev.Creds.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file for %s: %w", dev.Host, err)
		}

		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key for %s: %w", dev.Host, err)
		}

		auth = append(auth, ssh.PublicKeys(signer))
	}

	if dev.Creds.Password != "" {
		auth = append(auth, ssh.Password(dev.Creds.Password))
	}

	if len(auth) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAuthMethod, dev.Host)
	}

	return &ssh.ClientConfig{
		User: dev.Creds.Username,
		Auth: auth,
		// Inventory hosts are operator-controlled; host keys are not pinned.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         d.timeout,
	}, nil
}

// sshSession executes commands over one SSH client connection. The mutex
// serializes Execute calls: two tests hitting the same device concurrently
// take turns on the transport instead of interleaving channel opens.
type sshSession struct {
	client   *ssh.Client
	platform string
	host     string
	logger   logger.Logger

	mu     sync.Mutex
	closed bool
}

func (s *sshSession) Execute(ctx context.Context, commands []string, format Format) (*Response, error) {
	if len(commands) == 0 {
		return nil, ErrNoCommands
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: %s", ErrSessionClosed, s.host)
	}

	resp := &Response{Outputs: make([]CommandOutput, 0, len(commands))}

	for _, cmd := range commands {
		wire := cmd

		if format == FormatJSON {
			suffix, ok := jsonSuffixes[s.platform]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrJSONUnsupported, s.platform)
			}

			wire = cmd + suffix
		}

		out, err := s.runCommand(ctx, wire)
		if err != nil {
			return nil, err
		}

		resp.Outputs = append(resp.Outputs, CommandOutput{Command: cmd, Output: out})
	}

	return resp, nil
}

// runCommand runs one command in its own SSH channel, honoring ctx. On
// cancellation the channel is torn down and the in-flight command abandoned.
func (s *sshSession) runCommand(ctx context.Context, cmd string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open channel to %s: %w", s.host, err)
	}

	type result struct {
		out []byte
		err error
	}

	done := make(chan result, 1)

	go func() {
		out, runErr := sess.CombinedOutput(cmd)
		done <- result{out: out, err: runErr}
	}()

	select {
	case <-ctx.Done():
		_ = sess.Close()
		return "", fmt.Errorf("%w on %s: %w", errCommandCanceled, s.host, ctx.Err())
	case r := <-done:
		_ = sess.Close()

		if r.err != nil {
			return string(r.out), fmt.Errorf("command %q on %s: %w", cmd, s.host, r.err)
		}

		return string(r.out), nil
	}
}

func (s *sshSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.client.Close()
}
