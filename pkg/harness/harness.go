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

// Package harness wraps one check function with the skip/execute/classify/
// catch lifecycle, turning any behavior of the check into exactly one
// terminal result record.
package harness

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/carverauto/fleetvet/pkg/catalog"
	"github.com/carverauto/fleetvet/pkg/device"
	"github.com/carverauto/fleetvet/pkg/logger"
	"github.com/carverauto/fleetvet/pkg/models"
)

// Harness binds one test specification to its resolved check definition.
// One harness serves any number of devices; Execute is safe to call
// concurrently.
type Harness struct {
	test   catalog.Test
	def    catalog.Definition
	clock  Clock
	logger logger.Logger
}

// New creates a harness. A nil clock defaults to the real clock.
func New(test catalog.Test, def catalog.Definition, clock Clock, log logger.Logger) *Harness {
	if clock == nil {
		clock = realClock{}
	}

	return &Harness{
		test:   test,
		def:    def,
		clock:  clock,
		logger: log,
	}
}

// Execute runs the lifecycle against one device and always returns exactly
// one terminal record:
//
//  1. Gate: a required parameter missing from the test's Params yields a
//     skipped record with identical start and finish timestamps (zero
//     duration); the check body is never invoked.
//  2. Execute: the check runs with a fresh unset outcome. Panics are caught.
//  3. Classify: a panic or returned error yields status error; an outcome
//     the check set to success/failure is kept verbatim; an outcome left
//     unset is a defect in the check and yields status error with a message
//     naming the check, never a silent unset.
//
// Timestamps span steps 2-3.
func (h *Harness) Execute(ctx context.Context, dev *device.Device) models.Record {
	rec := models.Record{
		Device: dev.Host,
		Test:   h.test.Name,
		Tags:   h.test.Tags,
	}

	for _, required := range h.def.Requires {
		if !h.test.Params.Has(required) {
			now := h.clock.Now()

			rec.Status = models.StatusSkipped
			rec.Message = fmt.Sprintf("missing required parameter %q", required)
			rec.StartedAt = now
			rec.FinishedAt = now

			h.logger.Debug().
				Str("test", h.test.Name).
				Str("device", dev.Host).
				Str("parameter", required).
				Msg("Skipping test, required parameter missing")

			return rec
		}
	}

	rec.StartedAt = h.clock.Now()

	out := catalog.NewOutcome()
	err := h.run(ctx, dev, out)

	switch {
	case err != nil:
		rec.Status = models.StatusError
		rec.Message = err.Error()
	case out.Status().Terminal():
		rec.Status = out.Status()
		rec.Message = out.Message()
	default:
		// The check returned normally without deciding. That is a bug in
		// the check, not in the device; say so instead of reporting unset.
		rec.Status = models.StatusError
		rec.Message = fmt.Sprintf("check %q returned without setting a result; fix the check", h.def.Name)
	}

	rec.FinishedAt = h.clock.Now()

	h.logger.Debug().
		Str("test", h.test.Name).
		Str("device", dev.Host).
		Str("status", string(rec.Status)).
		Dur("elapsed", rec.Duration()).
		Msg("Check finished")

	return rec
}

// run invokes the check, converting a panic into an error so a crashing
// check can never take down sibling executions.
func (h *Harness) run(ctx context.Context, dev *device.Device, out *catalog.Outcome) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().
				Str("test", h.test.Name).
				Str("device", dev.Host).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Check panicked")

			err = fmt.Errorf("check %q panicked: %v", h.def.Name, r)
		}
	}()

	return h.def.Func(ctx, dev, out, h.test.Params)
}
