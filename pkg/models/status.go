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

// Package models contains the shared data model for fleetvet runs.
package models

// Status is the outcome classification of one (device, test) execution.
type Status string

const (
	// StatusUnset is the pre-execution default. It must never appear in a
	// finalized Record; the harness converts a check that leaves its outcome
	// unset into StatusError.
	StatusUnset Status = "unset"

	// StatusSkipped means a declared precondition was not met and the check
	// body was never invoked.
	StatusSkipped Status = "skipped"

	// StatusSuccess means the device responded and the check judged it compliant.
	StatusSuccess Status = "success"

	// StatusFailure means the device responded but the check judged it non-compliant.
	StatusFailure Status = "failure"

	// StatusError means the check could not complete: transport failure,
	// timeout, panic, or a defect in the check itself.
	StatusError Status = "error"
)

// Terminal reports whether s is a valid final status for a Record.
func (s Status) Terminal() bool {
	switch s {
	case StatusSkipped, StatusSuccess, StatusFailure, StatusError:
		return true
	case StatusUnset:
		return false
	default:
		return false
	}
}
