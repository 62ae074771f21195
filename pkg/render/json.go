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
	"encoding/json"
	"io"

	"github.com/carverauto/fleetvet/pkg/device"
	"github.com/carverauto/fleetvet/pkg/models"
	"github.com/carverauto/fleetvet/pkg/report"
)

// Envelope is the machine-readable form of a finished run.
type Envelope struct {
	Summary report.Summary  `json:"summary"`
	Records []models.Record `json:"records"`
	Offline []string        `json:"offline,omitempty"`
}

// JSON writes the full report as indented JSON for piping into jq or CI.
func JSON(w io.Writer, rep *report.Report, offline []*device.Device) error {
	env := Envelope{
		Summary: rep.Summary(),
		Records: rep.Records(),
	}

	for _, dev := range offline {
		env.Offline = append(env.Offline, dev.Host)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(env)
}
