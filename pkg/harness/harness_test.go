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

package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/fleetvet/pkg/catalog"
	"github.com/carverauto/fleetvet/pkg/device"
	"github.com/carverauto/fleetvet/pkg/logger"
	"github.com/carverauto/fleetvet/pkg/models"
)

var errRemoteTimeout = errors.New("remote call: i/o timeout")

// fakeClock hands out a fixed sequence of times.
type fakeClock struct {
	times []time.Time
	idx   int
}

func (f *fakeClock) Now() time.Time {
	if f.idx >= len(f.times) {
		return f.times[len(f.times)-1]
	}

	t := f.times[f.idx]
	f.idx++

	return t
}

func testDevice(t *testing.T) (*device.Device, *device.MockSession) {
	t.Helper()

	ctrl := gomock.NewController(t)
	sess := device.NewMockSession(ctrl)

	dev := &device.Device{Host: "10.0.0.1", Addr: "10.0.0.1:22"}
	dev.AttachSession(sess)

	return dev, sess
}

func TestExecuteKeepsCheckVerdict(t *testing.T) {
	tests := []struct {
		name       string
		decide     func(out *catalog.Outcome)
		wantStatus models.Status
		wantMsg    string
	}{
		{
			name:       "success kept verbatim",
			decide:     func(out *catalog.Outcome) { out.Pass("uptime ok") },
			wantStatus: models.StatusSuccess,
			wantMsg:    "uptime ok",
		},
		{
			name:       "failure kept verbatim",
			decide:     func(out *catalog.Outcome) { out.Fail("uptime too low") },
			wantStatus: models.StatusFailure,
			wantMsg:    "uptime too low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, _ := testDevice(t)

			def := catalog.Definition{
				Name: "verify_uptime",
				Func: func(_ context.Context, _ *device.Device, out *catalog.Outcome, _ catalog.Params) error {
					tt.decide(out)
					return nil
				},
			}

			h := New(catalog.Test{Name: "verify_uptime"}, def, nil, logger.NewTestLogger())
			rec := h.Execute(context.Background(), dev)

			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, tt.wantMsg, rec.Message)
			assert.Equal(t, "10.0.0.1", rec.Device)
			assert.Equal(t, "verify_uptime", rec.Test)
		})
	}
}

func TestExecuteSkipsOnMissingRequiredParam(t *testing.T) {
	dev, sess := testDevice(t)

	called := false
	def := catalog.Definition{
		Name:     "verify_uptime",
		Requires: []string{"minimum"},
		Func: func(ctx context.Context, d *device.Device, _ *catalog.Outcome, _ catalog.Params) error {
			called = true
			_, err := d.Run(ctx, []string{"show system uptime"}, device.FormatText)
			return err
		},
	}

	// No EXPECT on the session: a remote call would fail the test.
	_ = sess

	h := New(catalog.Test{Name: "verify_uptime", Params: catalog.Params{}}, def, nil, logger.NewTestLogger())
	rec := h.Execute(context.Background(), dev)

	assert.False(t, called, "check body must never run for a skipped test")
	assert.Equal(t, models.StatusSkipped, rec.Status)
	assert.Contains(t, rec.Message, "minimum")
	assert.Equal(t, rec.StartedAt, rec.FinishedAt, "skip records have zero duration")
}

func TestExecuteConvertsErrorToErrorStatus(t *testing.T) {
	dev, _ := testDevice(t)

	def := catalog.Definition{
		Name: "verify_uptime",
		Func: func(context.Context, *device.Device, *catalog.Outcome, catalog.Params) error {
			return errRemoteTimeout
		},
	}

	h := New(catalog.Test{Name: "verify_uptime"}, def, nil, logger.NewTestLogger())
	rec := h.Execute(context.Background(), dev)

	assert.Equal(t, models.StatusError, rec.Status)
	assert.Contains(t, rec.Message, "timeout")
}

func TestExecuteCatchesPanic(t *testing.T) {
	dev, _ := testDevice(t)

	def := catalog.Definition{
		Name: "bad_check",
		Func: func(context.Context, *device.Device, *catalog.Outcome, catalog.Params) error {
			var m map[string]int
			m["boom"] = 1 // nil map write
			return nil
		},
	}

	h := New(catalog.Test{Name: "bad_check"}, def, nil, logger.NewTestLogger())

	// Must not panic out of Execute.
	rec := h.Execute(context.Background(), dev)

	assert.Equal(t, models.StatusError, rec.Status)
	assert.Contains(t, rec.Message, "panicked")
	assert.Contains(t, rec.Message, "bad_check")
}

func TestExecuteFlagsNeverSetOutcome(t *testing.T) {
	dev, _ := testDevice(t)

	def := catalog.Definition{
		Name: "forgetful_check",
		Func: func(context.Context, *device.Device, *catalog.Outcome, catalog.Params) error {
			return nil // neither Pass nor Fail nor error
		},
	}

	h := New(catalog.Test{Name: "forgetful_check"}, def, nil, logger.NewTestLogger())
	rec := h.Execute(context.Background(), dev)

	assert.Equal(t, models.StatusError, rec.Status)
	assert.Contains(t, rec.Message, "forgetful_check")
	assert.Contains(t, rec.Message, "without setting a result")
	assert.NotEqual(t, models.StatusUnset, rec.Status)
}

func TestExecuteTimestampsSpanExecution(t *testing.T) {
	dev, _ := testDevice(t)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Second)
	clock := &fakeClock{times: []time.Time{start, end}}

	def := catalog.Definition{
		Name: "verify_uptime",
		Func: func(_ context.Context, _ *device.Device, out *catalog.Outcome, _ catalog.Params) error {
			out.Pass("ok")
			return nil
		},
	}

	h := New(catalog.Test{Name: "verify_uptime"}, def, clock, logger.NewTestLogger())
	rec := h.Execute(context.Background(), dev)

	assert.Equal(t, start, rec.StartedAt)
	assert.Equal(t, end, rec.FinishedAt)
	assert.Equal(t, 3*time.Second, rec.Duration())
}

func TestExecuteSessionErrorsBecomeErrorStatus(t *testing.T) {
	dev, sess := testDevice(t)

	sess.EXPECT().
		Execute(gomock.Any(), gomock.Any(), device.FormatText).
		Return(nil, errRemoteTimeout)

	def := catalog.Definition{
		Name: "verify_uptime",
		Func: func(ctx context.Context, d *device.Device, out *catalog.Outcome, _ catalog.Params) error {
			resp, err := d.Run(ctx, []string{"show system uptime"}, device.FormatText)
			if err != nil {
				return err
			}

			out.Pass(resp.Output())

			return nil
		},
	}

	h := New(catalog.Test{Name: "verify_uptime"}, def, nil, logger.NewTestLogger())
	rec := h.Execute(context.Background(), dev)

	require.Equal(t, models.StatusError, rec.Status)
	assert.Contains(t, rec.Message, "timeout")
}

func TestExecuteCarriesTestTags(t *testing.T) {
	dev, _ := testDevice(t)

	def := catalog.Definition{
		Name: "verify_uptime",
		Func: func(_ context.Context, _ *device.Device, out *catalog.Outcome, _ catalog.Params) error {
			out.Pass("ok")
			return nil
		},
	}

	h := New(catalog.Test{Name: "verify_uptime", Tags: []string{"core"}}, def, nil, logger.NewTestLogger())
	rec := h.Execute(context.Background(), dev)

	assert.Equal(t, []string{"core"}, rec.Tags)
}
