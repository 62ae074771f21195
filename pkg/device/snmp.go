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
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/fleetvet/pkg/logger"
)

const (
	oidSysDescr = ".1.3.6.1.2.1.1.1.0"
	oidSysName  = ".1.3.6.1.2.1.1.5.0"

	defaultSNMPPort    uint16 = 161
	defaultSNMPTimeout        = 3 * time.Second
	defaultSNMPRetries        = 1
)

// SNMPEnricher fills the hardware/model tag on a probed device from its
// SNMP system group. Enrichment is best effort; the prober only logs
// failures.
type SNMPEnricher struct {
	Community string
	Port      uint16
	Timeout   time.Duration

	logger logger.Logger
}

// NewSNMPEnricher creates an enricher for the given v2c community.
func NewSNMPEnricher(community string, port uint16, timeout time.Duration, log logger.Logger) *SNMPEnricher {
	if port == 0 {
		port = defaultSNMPPort
	}

	if timeout == 0 {
		timeout = defaultSNMPTimeout
	}

	return &SNMPEnricher{
		Community: community,
		Port:      port,
		Timeout:   timeout,
		logger:    log,
	}
}

// Enrich queries sysDescr/sysName and sets dev.Model. A model already set
// from the inventory is left alone.
func (e *SNMPEnricher) Enrich(dev *Device) error {
	if dev.Model != "" {
		return nil
	}

	target := dev.Addr
	if host, _, err := net.SplitHostPort(dev.Addr); err == nil {
		target = host
	}

	client := &gosnmp.GoSNMP{
		Target:    target,
		Port:      e.Port,
		Community: e.Community,
		Version:   gosnmp.Version2c,
		Timeout:   e.Timeout,
		Retries:   defaultSNMPRetries,
		MaxOids:   gosnmp.MaxOids,
	}

	if err := client.Connect(); err != nil {
		return fmt.Errorf("snmp connect to %s: %w", dev.Host, err)
	}
	defer func() { _ = client.Conn.Close() }()

	result, err := client.Get([]string{oidSysDescr, oidSysName})
	if err != nil {
		return fmt.Errorf("snmp get on %s: %w", dev.Host, err)
	}

	for _, v := range result.Variables {
		if v.Type != gosnmp.OctetString {
			continue
		}

		raw, ok := v.Value.([]byte)
		if !ok || len(raw) == 0 {
			continue
		}

		if v.Name == oidSysDescr {
			dev.Model = firstLine(string(raw))

			e.logger.Debug().
				Str("device", dev.Host).
				Str("model", dev.Model).
				Msg("SNMP model enrichment")

			return nil
		}
	}

	return fmt.Errorf("%w: %s", errSNMPEmptyVarbind, dev.Host)
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}

	return strings.TrimSpace(s)
}
