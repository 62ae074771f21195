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

//go:generate mockgen -destination=mock_device.go -package=device github.com/carverauto/fleetvet/pkg/device Session,Dialer

package device

import (
	"context"
	"strings"
)

// Format selects the output representation requested from the device.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// CommandOutput is the raw output of one command.
type CommandOutput struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

// Response carries the outputs of one Execute call, in command order.
type Response struct {
	Outputs []CommandOutput `json:"outputs"`
}

// Output returns the first command's output, the common single-command case.
func (r *Response) Output() string {
	if len(r.Outputs) == 0 {
		return ""
	}

	return r.Outputs[0].Output
}

// Combined returns all outputs joined, for checks that scan across commands.
func (r *Response) Combined() string {
	parts := make([]string, 0, len(r.Outputs))
	for _, o := range r.Outputs {
		parts = append(parts, o.Output)
	}

	return strings.Join(parts, "\n")
}

// Session is the remote-execution capability of an established device. A
// session belongs to exactly one device handle and is never shared across
// handles. Implementations must be safe for concurrent Execute calls from
// different tests against the same device; if the transport cannot
// multiplex, the session serializes internally.
type Session interface {
	Execute(ctx context.Context, commands []string, format Format) (*Response, error)
	Close() error
}

// Dialer opens a session to a device. The production implementation is
// SSHDialer; tests substitute mocks.
type Dialer interface {
	Dial(ctx context.Context, dev *Device) (Session, error)
}
