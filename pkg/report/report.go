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

// Package report is the concurrent-safe sink for finalized records and the
// query surface consumers read the run's outcome from.
package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/fleetvet/pkg/logger"
	"github.com/carverauto/fleetvet/pkg/models"
)

type pairKey struct {
	device string
	test   string
}

// Report collects the records of one run. It is created per run and passed
// explicitly to the runner; there is no package-global store. All methods
// are safe under fully concurrent use.
//
// Records are appended, never overwritten: a second Submit for the same
// (device, test) pair fails with ErrDuplicateResult. Scheduler-level reruns
// go through Replace, which is the one explicit overwrite operation.
type Report struct {
	mu sync.RWMutex

	runID      string
	startedAt  time.Time
	finishedAt time.Time

	records     []models.Record
	index       map[pairKey]int
	deviceOrder []string
	byDevice    map[string][]int

	logger logger.Logger
}

// New creates an empty report for one run.
func New(log logger.Logger) *Report {
	return &Report{
		runID:     uuid.New().String(),
		startedAt: time.Now(),
		index:     make(map[pairKey]int),
		byDevice:  make(map[string][]int),
		logger:    log,
	}
}

// RunID returns the run's unique identifier.
func (r *Report) RunID() string {
	return r.runID
}

// StartedAt returns when the report was created.
func (r *Report) StartedAt() time.Time {
	return r.startedAt
}

// Finish stamps the run's end time. Idempotent.
func (r *Report) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finishedAt.IsZero() {
		r.finishedAt = time.Now()
	}
}

// FinishedAt returns the end stamp, zero until Finish is called.
func (r *Report) FinishedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.finishedAt
}

// Submit appends one finalized record. It fails with ErrDuplicateResult if
// the (device, test) pair already has a record, leaving the first untouched,
// and with ErrNotTerminal if the record was never finalized.
func (r *Report) Submit(rec models.Record) error {
	if !rec.Status.Terminal() {
		return fmt.Errorf("%w: %s/%s has status %q", ErrNotTerminal, rec.Device, rec.Test, rec.Status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{device: rec.Device, test: rec.Test}

	if _, exists := r.index[key]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateResult, rec.Device, rec.Test)
	}

	r.insertLocked(key, rec)

	return nil
}

// Replace overwrites the record for a rerun pair, keeping its original
// insertion slot, or appends when the pair is new. Only the runner's
// explicit retry path uses it.
func (r *Report) Replace(rec models.Record) error {
	if !rec.Status.Terminal() {
		return fmt.Errorf("%w: %s/%s has status %q", ErrNotTerminal, rec.Device, rec.Test, rec.Status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{device: rec.Device, test: rec.Test}

	if i, exists := r.index[key]; exists {
		r.records[i] = rec

		r.logger.Debug().
			Str("device", rec.Device).
			Str("test", rec.Test).
			Int("attempt", rec.Attempt).
			Msg("Replaced record after rerun")

		return nil
	}

	r.insertLocked(key, rec)

	return nil
}

func (r *Report) insertLocked(key pairKey, rec models.Record) {
	idx := len(r.records)
	r.records = append(r.records, rec)
	r.index[key] = idx

	if _, seen := r.byDevice[rec.Device]; !seen {
		r.deviceOrder = append(r.deviceOrder, rec.Device)
	}

	r.byDevice[rec.Device] = append(r.byDevice[rec.Device], idx)
}

// Len returns the number of stored records. Useful for polling progress
// while a run is still executing.
func (r *Report) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records)
}

// Records returns all records in submission order.
func (r *Report) Records() []models.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Record, len(r.records))
	copy(out, r.records)

	return out
}

// Devices returns the hosts that have records, in first-submission order.
func (r *Report) Devices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.deviceOrder))
	copy(out, r.deviceOrder)

	return out
}

// DeviceRecords returns one device's records in their insertion order.
func (r *Report) DeviceRecords(host string) []models.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idxs := r.byDevice[host]
	out := make([]models.Record, 0, len(idxs))

	for _, i := range idxs {
		out = append(out, r.records[i])
	}

	return out
}

// Get returns the record for one (device, test) pair.
func (r *Report) Get(deviceHost, test string) (models.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[pairKey{device: deviceHost, test: test}]
	if !ok {
		return models.Record{}, false
	}

	return r.records[i], true
}

// Query returns a consistent snapshot of the records matching the filter,
// in submission order. A nil filter matches everything.
func (r *Report) Query(filter *Filter) []models.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Record, 0, len(r.records))

	for i := range r.records {
		if filter.matches(&r.records[i]) {
			out = append(out, r.records[i])
		}
	}

	return out
}
