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

package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/carverauto/fleetvet/pkg/device"
	"github.com/carverauto/fleetvet/pkg/models"
	"github.com/carverauto/fleetvet/pkg/report"
)

const statusColWidth = 8

// Table writes a styled per-device breakdown of the report followed by a
// summary banner. Offline devices are listed so a clean table cannot hide
// an unreachable fleet.
func Table(w io.Writer, rep *report.Report, offline []*device.Device) error {
	st := newStyles()

	if _, err := fmt.Fprintln(w, st.header.Render("fleetvet run "+rep.RunID())); err != nil {
		return err
	}

	for _, host := range rep.Devices() {
		if _, err := fmt.Fprintln(w, st.device.Render(host)); err != nil {
			return err
		}

		for _, rec := range rep.DeviceRecords(host) {
			status := st.forStatus(rec.Status).Render(pad(strings.ToUpper(string(rec.Status))))

			line := fmt.Sprintf("  %s %-24s %s", status, rec.Test, rec.Message)
			if d := rec.Duration(); d > 0 {
				line += st.muted.Render(fmt.Sprintf("  (%s)", d.Round(time.Millisecond)))
			}

			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}

	for _, dev := range offline {
		line := fmt.Sprintf("  %s %-24s %s", st.errored.Render(pad("OFFLINE")), dev.Host, "unreachable; no tests executed")
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	summary := rep.Summary()
	verdict := st.failure.Render("NOT CLEAN")

	if summary.Clean && len(offline) == 0 {
		verdict = st.success.Render("CLEAN")
	}

	banner := fmt.Sprintf("%s  %d tests  %d success  %d failure  %d error  %d skipped  in %s",
		verdict,
		summary.Total,
		summary.ByStatus[models.StatusSuccess],
		summary.ByStatus[models.StatusFailure],
		summary.ByStatus[models.StatusError],
		summary.ByStatus[models.StatusSkipped],
		summary.Duration.Round(time.Millisecond))

	_, err := fmt.Fprintln(w, st.banner.Render(banner))

	return err
}

func pad(s string) string {
	if len(s) >= statusColWidth {
		return s
	}

	return s + strings.Repeat(" ", statusColWidth-len(s))
}
