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

// Package inventory loads the YAML fleet definition and turns it into
// device handles ready for probing.
package inventory

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/carverauto/fleetvet/pkg/device"
	"github.com/carverauto/fleetvet/pkg/models"
)

const defaultSSHPort = 22

var (
	ErrNoDevices     = errors.New("inventory defines no devices")
	ErrHostRequired  = errors.New("device entry is missing a host")
	ErrDuplicateHost = errors.New("duplicate host in inventory")
	ErrPortRange     = errors.New("port out of range")
)

// Defaults applies to every device entry that does not override it.
type Defaults struct {
	Port     int                `yaml:"port,omitempty" json:"port,omitempty"`
	Platform string             `yaml:"platform,omitempty" json:"platform,omitempty"`
	Creds    device.Credentials `yaml:"creds,omitempty" json:"creds,omitempty"`
}

// SNMP configures the optional model/description enrichment probe.
type SNMP struct {
	Community string          `yaml:"community,omitempty" json:"community,omitempty"`
	Port      uint16          `yaml:"port,omitempty" json:"port,omitempty"`
	Timeout   models.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Entry is one device row in the inventory file.
type Entry struct {
	Host     string             `yaml:"host" json:"host"`
	Addr     string             `yaml:"addr,omitempty" json:"addr,omitempty"`
	Port     int                `yaml:"port,omitempty" json:"port,omitempty"`
	Platform string             `yaml:"platform,omitempty" json:"platform,omitempty"`
	Model    string             `yaml:"model,omitempty" json:"model,omitempty"`
	Creds    device.Credentials `yaml:"creds,omitempty" json:"creds,omitempty"`
	Tags     []string           `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Inventory is the parsed fleet file.
type Inventory struct {
	Defaults Defaults `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	SNMP     *SNMP    `yaml:"snmp,omitempty" json:"snmp,omitempty"`
	Devices  []Entry  `yaml:"devices" json:"devices"`
}

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates inventory YAML.
func Parse(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	return &inv, nil
}

// Validate enforces structural invariants on the parsed file.
func (inv *Inventory) Validate() error {
	if len(inv.Devices) == 0 {
		return ErrNoDevices
	}

	seen := make(map[string]struct{}, len(inv.Devices))

	for i, e := range inv.Devices {
		if e.Host == "" {
			return fmt.Errorf("%w (entry %d)", ErrHostRequired, i)
		}

		if _, dup := seen[e.Host]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateHost, e.Host)
		}

		seen[e.Host] = struct{}{}

		if err := checkPort(e.Port); err != nil {
			return fmt.Errorf("device %q: %w", e.Host, err)
		}
	}

	return checkPort(inv.Defaults.Port)
}

func checkPort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: %d", ErrPortRange, port)
	}

	return nil
}

// Build materializes device handles, folding file defaults into each
// entry. Handles come back unestablished; the prober attaches sessions.
func (inv *Inventory) Build() []*device.Device {
	devices := make([]*device.Device, 0, len(inv.Devices))

	for _, e := range inv.Devices {
		addr := e.Addr
		if addr == "" {
			addr = e.Host
		}

		port := e.Port
		if port == 0 {
			port = inv.Defaults.Port
		}

		if port == 0 {
			port = defaultSSHPort
		}

		platform := e.Platform
		if platform == "" {
			platform = inv.Defaults.Platform
		}

		devices = append(devices, &device.Device{
			Host:     e.Host,
			Addr:     net.JoinHostPort(addr, strconv.Itoa(port)),
			Platform: platform,
			Model:    e.Model,
			Tags:     e.Tags,
			Creds:    mergeCreds(e.Creds, inv.Defaults.Creds),
		})
	}

	return devices
}

// SNMPTimeout returns the configured enrichment timeout or a sane floor.
func (s *SNMP) SNMPTimeout() time.Duration {
	if s == nil || s.Timeout <= 0 {
		return 5 * time.Second
	}

	return time.Duration(s.Timeout)
}

func mergeCreds(entry, def device.Credentials) device.Credentials {
	if entry.Username == "" {
		entry.Username = def.Username
	}

	if entry.Password == "" {
		entry.Password = def.Password
	}

	if entry.KeyFile == "" {
		entry.KeyFile = def.KeyFile
	}

	return entry
}
