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

package report

import (
	"time"

	"github.com/carverauto/fleetvet/pkg/models"
)

// Summary is the rollup of one run.
type Summary struct {
	RunID      string                `json:"run_id"`
	Total      int                   `json:"total"`
	ByStatus   map[models.Status]int `json:"by_status"`
	Devices    []DeviceSummary       `json:"devices"`
	Clean      bool                  `json:"clean"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at,omitempty"`
	Duration   time.Duration         `json:"duration_ns,omitempty"`
}

// DeviceSummary is the per-device rollup, in first-submission order.
type DeviceSummary struct {
	Host   string                `json:"host"`
	Total  int                   `json:"total"`
	Counts map[models.Status]int `json:"counts"`
	Clean  bool                  `json:"clean"`
}

// Summary builds the rollup from the current record set. The run is clean
// iff no record has status failure or error; skipped records do not taint
// it.
func (r *Report) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{
		RunID:      r.runID,
		Total:      len(r.records),
		ByStatus:   make(map[models.Status]int),
		Clean:      true,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
	}

	if !r.finishedAt.IsZero() {
		s.Duration = r.finishedAt.Sub(r.startedAt)
	}

	perDevice := make(map[string]*DeviceSummary, len(r.deviceOrder))

	for _, host := range r.deviceOrder {
		perDevice[host] = &DeviceSummary{
			Host:   host,
			Counts: make(map[models.Status]int),
			Clean:  true,
		}
	}

	for i := range r.records {
		rec := &r.records[i]

		s.ByStatus[rec.Status]++

		ds := perDevice[rec.Device]
		ds.Total++
		ds.Counts[rec.Status]++

		if rec.Status == models.StatusFailure || rec.Status == models.StatusError {
			s.Clean = false
			ds.Clean = false
		}
	}

	s.Devices = make([]DeviceSummary, 0, len(r.deviceOrder))
	for _, host := range r.deviceOrder {
		s.Devices = append(s.Devices, *perDevice[host])
	}

	return s
}
