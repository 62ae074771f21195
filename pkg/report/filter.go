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

import "github.com/carverauto/fleetvet/pkg/models"

// Filter describes which records to return. Set fields compose with AND
// semantics; zero fields match everything.
type Filter struct {
	Device   string
	Test     string
	Tag      string
	Statuses []models.Status
}

// matches checks if a record matches the filter. A nil filter matches all.
func (f *Filter) matches(rec *models.Record) bool {
	if f == nil {
		return true
	}

	checks := []func(*models.Record) bool{
		f.checkDevice,
		f.checkTest,
		f.checkTag,
		f.checkStatus,
	}

	for _, check := range checks {
		if !check(rec) {
			return false
		}
	}

	return true
}

func (f *Filter) checkDevice(rec *models.Record) bool {
	return f.Device == "" || rec.Device == f.Device
}

func (f *Filter) checkTest(rec *models.Record) bool {
	return f.Test == "" || rec.Test == f.Test
}

func (f *Filter) checkTag(rec *models.Record) bool {
	return f.Tag == "" || rec.HasTag(f.Tag)
}

func (f *Filter) checkStatus(rec *models.Record) bool {
	if len(f.Statuses) == 0 {
		return true
	}

	for _, s := range f.Statuses {
		if rec.Status == s {
			return true
		}
	}

	return false
}
