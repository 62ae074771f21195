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

// Package runner schedules test executions across a device fleet with
// bounded concurrency and delivers every result to a report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/fleetvet/pkg/catalog"
	"github.com/carverauto/fleetvet/pkg/device"
	"github.com/carverauto/fleetvet/pkg/harness"
	"github.com/carverauto/fleetvet/pkg/logger"
	"github.com/carverauto/fleetvet/pkg/models"
	"github.com/carverauto/fleetvet/pkg/report"
)

// unit is one (device, test) execution.
type unit struct {
	dev     *device.Device
	test    catalog.Test
	def     catalog.Definition
	attempt int
}

type pairKey struct {
	device string
	test   string
}

// Runner fans the device/test cross product out over a worker pool.
type Runner struct {
	cfg      Config
	registry catalog.Registry
	report   *report.Report
	clock    harness.Clock
	logger   logger.Logger
}

// New validates the config and builds a Runner. A nil clock means wall time.
func New(cfg Config, reg catalog.Registry, rep *report.Report, clock harness.Clock, log logger.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if reg == nil {
		return nil, errRegistryRequired
	}

	if rep == nil {
		return nil, errReportRequired
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Runner{
		cfg:      cfg,
		registry: reg,
		report:   rep,
		clock:    clock,
		logger:   log,
	}, nil
}

// Run executes every applicable test against every device and records the
// outcome. Exactly one record lands in the report per (device, test) pair;
// with retries enabled, error-status records may be replaced by the result
// of a later attempt. Run returns after all units have settled. The joined
// error covers scheduling problems, never test verdicts.
func (r *Runner) Run(ctx context.Context, devices []*device.Device, tests []catalog.Test) error {
	units, err := r.buildUnits(devices, tests)
	if err != nil {
		return err
	}

	if len(units) == 0 {
		r.logger.Info().Msg("Nothing to run: empty device/test cross product")
		return nil
	}

	r.logger.Info().
		Int("units", len(units)).
		Int("devices", len(devices)).
		Int("tests", len(tests)).
		Int("concurrency", r.cfg.Concurrency).
		Msg("Starting run")

	errs := r.runUnits(ctx, units, r.report.Submit)

	if r.cfg.Retries > 0 {
		index := make(map[pairKey]unit, len(units))
		for _, u := range units {
			index[pairKey{device: u.dev.Host, test: u.test.Name}] = u
		}

		errs = append(errs, r.retry(ctx, index)...)
	}

	return errors.Join(errs...)
}

// buildUnits validates inputs and expands the device-major cross product,
// honoring per-test tag selectors.
func (r *Runner) buildUnits(devices []*device.Device, tests []catalog.Test) ([]unit, error) {
	seen := make(map[string]struct{}, len(tests))
	defs := make([]catalog.Definition, len(tests))

	for i, t := range tests {
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTestName, t.Name)
		}

		seen[t.Name] = struct{}{}

		def, err := r.registry.Get(t.CheckName())
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", t.Name, err)
		}

		defs[i] = def
	}

	units := make([]unit, 0, len(devices)*len(tests))

	for _, dev := range devices {
		if !dev.Established {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotEstablished, dev.Host)
		}

		for i, t := range tests {
			if !dev.HasTags(t.Tags) {
				continue
			}

			units = append(units, unit{dev: dev, test: t, def: defs[i]})
		}
	}

	return units, nil
}

// runUnits drains the unit queue through a fixed pool of workers and hands
// each record to sink. Sink failures are collected, not fatal.
func (r *Runner) runUnits(ctx context.Context, units []unit, sink func(models.Record) error) []error {
	workCh := make(chan unit, len(units))
	errCh := make(chan error, len(units))

	workers := r.cfg.Concurrency
	if workers > len(units) {
		workers = len(units)
	}

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for u := range workCh {
				rec := r.execute(ctx, u)
				if err := sink(rec); err != nil {
					errCh <- fmt.Errorf("recording %s/%s: %w", rec.Device, rec.Test, err)
				}
			}
		}()
	}

	for _, u := range units {
		workCh <- u
	}

	close(workCh)

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}

	return errs
}

// execute runs a single unit under its timeout. A unit that outlives its
// deadline is abandoned and reported as an error; the stuck goroutine's
// late result is discarded so one slow device cannot stall the pool.
func (r *Runner) execute(ctx context.Context, u unit) models.Record {
	timeout := time.Duration(u.test.Timeout)
	if timeout <= 0 {
		timeout = time.Duration(r.cfg.DefaultTimeout)
	}

	uctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h := harness.New(u.test, u.def, r.clock, r.logger)

	started := r.now()
	done := make(chan models.Record, 1)

	go func() {
		done <- h.Execute(uctx, u.dev)
	}()

	select {
	case rec := <-done:
		rec.Attempt = u.attempt
		return rec
	case <-uctx.Done():
		msg := fmt.Sprintf("timed out after %s", timeout)
		if !errors.Is(uctx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("canceled: %v", context.Cause(uctx))
		}

		r.logger.Warn().
			Str("device", u.dev.Host).
			Str("test", u.test.Name).
			Dur("timeout", timeout).
			Msg("Abandoning test execution")

		return models.Record{
			Device:     u.dev.Host,
			Test:       u.test.Name,
			Status:     models.StatusError,
			Message:    msg,
			Tags:       u.test.Tags,
			StartedAt:  started,
			FinishedAt: r.now(),
			Attempt:    u.attempt,
		}
	}
}

// retry re-runs units whose latest record carries an error status. Each
// pass replaces the prior record in place, keeping one record per pair.
func (r *Runner) retry(ctx context.Context, index map[pairKey]unit) []error {
	var errs []error

	for pass := 1; pass <= r.cfg.Retries; pass++ {
		failed := r.report.Query(&report.Filter{Statuses: []models.Status{models.StatusError}})
		if len(failed) == 0 {
			return errs
		}

		retry := make([]unit, 0, len(failed))

		for i := range failed {
			u, ok := index[pairKey{device: failed[i].Device, test: failed[i].Test}]
			if !ok {
				continue
			}

			u.attempt = pass
			retry = append(retry, u)
		}

		r.logger.Info().Int("pass", pass).Int("units", len(retry)).Msg("Retrying errored units")

		errs = append(errs, r.runUnits(ctx, retry, r.report.Replace)...)
	}

	return errs
}

func (r *Runner) now() time.Time {
	if r.clock != nil {
		return r.clock.Now()
	}

	return time.Now()
}
