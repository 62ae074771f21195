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

package models

import "time"

// Record is the finalized outcome of one (device, test) execution. Records
// are passed and stored by value; once a harness hands one out it is never
// mutated again.
type Record struct {
	Device     string    `json:"device"`
	Test       string    `json:"test"`
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Attempt is 0 for the first issue of a unit and incremented for each
	// scheduler-level rerun of the same (device, test) pair.
	Attempt int `json:"attempt,omitempty"`
}

// Duration returns the wall-clock span of the execution. Skipped records
// report zero: the gate stamps identical start and finish times.
func (r *Record) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasTag reports whether the record's test carried the given tag.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}

	return false
}
