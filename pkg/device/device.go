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

// Package device models one remote host and the session used to reach it.
package device

import (
	"context"
	"fmt"
)

// Credentials is authentication material for a device. The engine treats it
// as opaque; only the dialer reads it.
type Credentials struct {
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty" json:"key_file,omitempty"`
}

// Device is the handle for one remote host: identity, connectivity state, and
// the attached execution session. A handle with Established == false must
// never reach a harness; the runner rejects it.
type Device struct {
	Host     string
	Addr     string
	Platform string
	Model    string
	Tags     []string
	Creds    Credentials

	Established bool
	IsOnline    bool

	session Session
}

// AttachSession binds an open session to the handle and marks it established.
// Called by the prober only.
func (d *Device) AttachSession(s Session) {
	d.session = s
	d.Established = true
	d.IsOnline = true
}

// MarkOffline clears the connectivity flags after a failed probe.
func (d *Device) MarkOffline() {
	d.session = nil
	d.Established = false
	d.IsOnline = false
}

// Session returns the attached execution session, or nil when the device is
// not established.
func (d *Device) Session() Session {
	return d.session
}

// Run executes commands through the attached session. This is the single
// remote-execution entry point check functions use.
func (d *Device) Run(ctx context.Context, commands []string, format Format) (*Response, error) {
	if !d.Established || d.session == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotEstablished, d.Host)
	}

	return d.session.Execute(ctx, commands, format)
}

// Close tears down the attached session, if any.
func (d *Device) Close() error {
	if d.session == nil {
		return nil
	}

	err := d.session.Close()
	d.session = nil

	return err
}

// HasTags reports whether the device carries every tag in want. An empty
// want always matches.
func (d *Device) HasTags(want []string) bool {
	for _, w := range want {
		found := false

		for _, t := range d.Tags {
			if t == w {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

// Established filters a device set down to the handles with open sessions.
// Callers schedule tests against the returned subset only.
func Established(devices []*Device) []*Device {
	live := make([]*Device, 0, len(devices))

	for _, d := range devices {
		if d.Established {
			live = append(live, d)
		}
	}

	return live
}

// Offline returns the complement of Established: probed handles with no
// usable session. These are reported directly and never receive records.
func Offline(devices []*Device) []*Device {
	down := make([]*Device, 0)

	for _, d := range devices {
		if !d.Established {
			down = append(down, d)
		}
	}

	return down
}
