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
	"fmt"

	"github.com/carverauto/fleetvet/pkg/models"
)

// Outcome is the mutable result slot handed to a check function. The check
// must, on every reachable path, either call Pass/Fail or return an error;
// a check that returns leaving the outcome unset is a defect the harness
// reports loudly.
type Outcome struct {
	status  models.Status
	message string
}

// NewOutcome creates an outcome in the unset state.
func NewOutcome() *Outcome {
	return &Outcome{status: models.StatusUnset}
}

// Pass marks the device compliant.
func (o *Outcome) Pass(message string) {
	o.status = models.StatusSuccess
	o.message = message
}

// Passf is Pass with formatting.
func (o *Outcome) Passf(format string, args ...interface{}) {
	o.Pass(fmt.Sprintf(format, args...))
}

// Fail marks the device non-compliant. This is a judgment about the device,
// not a malfunction; malfunctions are returned as errors instead.
func (o *Outcome) Fail(message string) {
	o.status = models.StatusFailure
	o.message = message
}

// Failf is Fail with formatting.
func (o *Outcome) Failf(format string, args ...interface{}) {
	o.Fail(fmt.Sprintf(format, args...))
}

// Status returns the current status.
func (o *Outcome) Status() models.Status {
	return o.status
}

// Message returns the message set by the last Pass/Fail call.
func (o *Outcome) Message() string {
	return o.message
}
