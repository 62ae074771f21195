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

package catalog

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/fleetvet/pkg/device"
)

const defaultMaxNTPOffsetMS = 500

var (
	uptimeRe    = regexp.MustCompile(`(?i)uptime\D*(\d+)`)
	ntpOffsetRe = regexp.MustCompile(`(?i)offset[^\d\-+]*(-?\d+(?:\.\d+)?)`)
	syncedRe    = regexp.MustCompile(`(?i)\bsynchroni[sz]ed\b`)
	unsyncedRe  = regexp.MustCompile(`(?i)\bunsynchroni[sz]ed\b|not\s+synchroni[sz]ed`)
)

// Defaults returns a registry pre-loaded with the built-in checks.
func Defaults() Registry {
	reg := NewRegistry()

	builtins := []Definition{
		{
			Name:        "verify_uptime",
			Description: "device has been up at least the given minimum",
			Requires:    []string{"minimum"},
			Func:        verifyUptime,
		},
		{
			Name:        "verify_os_version",
			Description: "device runs the expected OS version",
			Requires:    []string{"version"},
			Func:        verifyOSVersion,
		},
		{
			Name:        "verify_interfaces",
			Description: "required interfaces are present and up",
			Func:        verifyInterfaces,
		},
		{
			Name:        "verify_ntp_sync",
			Description: "clock is NTP-synchronized within the allowed offset",
			Func:        verifyNTPSync,
		},
	}

	for _, def := range builtins {
		// Registration of the built-in set cannot collide.
		if err := reg.Register(def); err != nil {
			panic(err)
		}
	}

	return reg
}

// verifyUptime passes when the reported uptime meets the required minimum.
// "minimum" takes a duration string or a number of seconds.
func verifyUptime(ctx context.Context, dev *device.Device, out *Outcome, params Params) error {
	minimum, err := params.Duration("minimum")
	if err != nil {
		return err
	}

	resp, err := dev.Run(ctx, []string{"show system uptime"}, device.FormatText)
	if err != nil {
		return err
	}

	m := uptimeRe.FindStringSubmatch(resp.Output())
	if m == nil {
		return fmt.Errorf("could not parse uptime from %q output on %s", "show system uptime", dev.Host)
	}

	seconds, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parse uptime seconds on %s: %w", dev.Host, err)
	}

	uptime := time.Duration(seconds) * time.Second

	if uptime >= minimum {
		out.Passf("uptime %s meets minimum %s", uptime, minimum)
	} else {
		out.Failf("uptime %s below minimum %s", uptime, minimum)
	}

	return nil
}

// verifyOSVersion passes when "show version" output contains the expected
// version string.
func verifyOSVersion(ctx context.Context, dev *device.Device, out *Outcome, params Params) error {
	version, err := params.String("version")
	if err != nil {
		return err
	}

	resp, err := dev.Run(ctx, []string{"show version"}, device.FormatText)
	if err != nil {
		return err
	}

	if strings.Contains(resp.Output(), version) {
		out.Passf("running expected version %s", version)
	} else {
		out.Failf("expected version %s not reported", version)
	}

	return nil
}

// verifyInterfaces passes when every interface named in the optional
// "require" list is reported up. Without "require" it fails on any interface
// line reported down.
func verifyInterfaces(ctx context.Context, dev *device.Device, out *Outcome, params Params) error {
	var required []string

	if params.Has("require") {
		var err error

		required, err = params.StringSlice("require")
		if err != nil {
			return err
		}
	}

	resp, err := dev.Run(ctx, []string{"show interfaces brief"}, device.FormatText)
	if err != nil {
		return err
	}

	lines := strings.Split(resp.Output(), "\n")

	if len(required) == 0 {
		var down []string

		for _, line := range lines {
			fields := strings.Fields(line)
			if len(fields) >= 2 && strings.EqualFold(fields[1], "down") {
				down = append(down, fields[0])
			}
		}

		if len(down) > 0 {
			out.Failf("interfaces down: %s", strings.Join(down, ", "))
		} else {
			out.Pass("all interfaces up")
		}

		return nil
	}

	var missing []string

	for _, name := range required {
		if !interfaceUp(lines, name) {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		out.Failf("required interfaces not up: %s", strings.Join(missing, ", "))
	} else {
		out.Passf("all %d required interfaces up", len(required))
	}

	return nil
}

func interfaceUp(lines []string, name string) bool {
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == name && strings.EqualFold(fields[1], "up") {
			return true
		}
	}

	return false
}

// verifyNTPSync passes when the clock reports synchronized and the offset is
// within "max_offset_ms" (default 500).
func verifyNTPSync(ctx context.Context, dev *device.Device, out *Outcome, params Params) error {
	maxOffset := defaultMaxNTPOffsetMS

	if params.Has("max_offset_ms") {
		var err error

		maxOffset, err = params.Int("max_offset_ms")
		if err != nil {
			return err
		}
	}

	resp, err := dev.Run(ctx, []string{"show ntp status"}, device.FormatText)
	if err != nil {
		return err
	}

	output := resp.Output()

	if unsyncedRe.MatchString(output) || !syncedRe.MatchString(output) {
		out.Fail("clock not synchronized")
		return nil
	}

	m := ntpOffsetRe.FindStringSubmatch(output)
	if m == nil {
		return fmt.Errorf("could not parse NTP offset on %s", dev.Host)
	}

	offset, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return fmt.Errorf("parse NTP offset on %s: %w", dev.Host, err)
	}

	if math.Abs(offset) <= float64(maxOffset) {
		out.Passf("synchronized, offset %.3fms within %dms", offset, maxOffset)
	} else {
		out.Failf("offset %.3fms exceeds %dms", offset, maxOffset)
	}

	return nil
}
