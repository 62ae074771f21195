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

package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/fleetvet/pkg/catalog"
	"github.com/carverauto/fleetvet/pkg/device"
	"github.com/carverauto/fleetvet/pkg/logger"
	"github.com/carverauto/fleetvet/pkg/models"
	"github.com/carverauto/fleetvet/pkg/report"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testDevice(host string, tags ...string) *device.Device {
	return &device.Device{
		Host:        host,
		Addr:        host + ":22",
		Established: true,
		IsOnline:    true,
		Tags:        tags,
	}
}

func passCheck(_ context.Context, _ *device.Device, out *catalog.Outcome, _ catalog.Params) error {
	out.Pass("ok")
	return nil
}

func registryWith(t *testing.T, defs ...catalog.Definition) catalog.Registry {
	t.Helper()

	reg := catalog.NewRegistry()
	for _, def := range defs {
		require.NoError(t, reg.Register(def))
	}

	return reg
}

func newRunner(t *testing.T, cfg Config, reg catalog.Registry, rep *report.Report) *Runner {
	t.Helper()

	r, err := New(cfg, reg, rep, nil, logger.NewTestLogger())
	require.NoError(t, err)

	return r
}

func TestRunOneRecordPerPair(t *testing.T) {
	reg := registryWith(t, catalog.Definition{Name: "always_pass", Func: passCheck})
	rep := report.New(logger.NewTestLogger())

	devices := []*device.Device{
		testDevice("10.0.0.1"),
		testDevice("10.0.0.2"),
		testDevice("10.0.0.3"),
	}
	tests := []catalog.Test{
		{Name: "pass-a", Check: "always_pass"},
		{Name: "pass-b", Check: "always_pass"},
	}

	r := newRunner(t, Config{Concurrency: 4}, reg, rep)
	require.NoError(t, r.Run(context.Background(), devices, tests))

	assert.Equal(t, 6, rep.Len())

	for _, dev := range devices {
		for _, tc := range tests {
			rec, ok := rep.Get(dev.Host, tc.Name)
			require.True(t, ok, "missing record for %s/%s", dev.Host, tc.Name)
			assert.Equal(t, models.StatusSuccess, rec.Status)
			assert.Equal(t, 0, rec.Attempt)
		}
	}
}

func TestRunConcurrencyBound(t *testing.T) {
	var inFlight, maxSeen int64

	slow := func(ctx context.Context, _ *device.Device, out *catalog.Outcome, _ catalog.Params) error {
		cur := atomic.AddInt64(&inFlight, 1)
		defer atomic.AddInt64(&inFlight, -1)

		for {
			prev := atomic.LoadInt64(&maxSeen)
			if cur <= prev || atomic.CompareAndSwapInt64(&maxSeen, prev, cur) {
				break
			}
		}

		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
		}

		out.Pass("ok")

		return nil
	}

	reg := registryWith(t, catalog.Definition{Name: "slow_pass", Func: slow})
	rep := report.New(logger.NewTestLogger())

	devices := make([]*device.Device, 0, 10)
	for i := 0; i < 10; i++ {
		devices = append(devices, testDevice(fmt.Sprintf("10.0.1.%d", i+1)))
	}

	r := newRunner(t, Config{Concurrency: 2}, reg, rep)
	require.NoError(t, r.Run(context.Background(), devices, []catalog.Test{{Name: "slow", Check: "slow_pass"}}))

	assert.Equal(t, 10, rep.Len())
	assert.LessOrEqual(t, atomic.LoadInt64(&maxSeen), int64(2), "concurrency cap exceeded")
}

func TestRunTimeoutIsolatesStuckUnit(t *testing.T) {
	block := func(ctx context.Context, _ *device.Device, out *catalog.Outcome, _ catalog.Params) error {
		<-ctx.Done()
		out.Pass("too late")

		return nil
	}

	reg := registryWith(t,
		catalog.Definition{Name: "always_pass", Func: passCheck},
		catalog.Definition{Name: "hang", Func: block},
	)
	rep := report.New(logger.NewTestLogger())

	devices := []*device.Device{testDevice("10.0.0.1"), testDevice("10.0.0.2")}
	tests := []catalog.Test{
		{Name: "healthy", Check: "always_pass"},
		{Name: "stuck", Check: "hang", Timeout: models.Duration(30 * time.Millisecond)},
	}

	r := newRunner(t, Config{Concurrency: 4}, reg, rep)
	require.NoError(t, r.Run(context.Background(), devices, tests))

	assert.Equal(t, 4, rep.Len())

	for _, dev := range devices {
		rec, ok := rep.Get(dev.Host, "stuck")
		require.True(t, ok)
		assert.Equal(t, models.StatusError, rec.Status)
		assert.Contains(t, rec.Message, "timed out after 30ms")

		rec, ok = rep.Get(dev.Host, "healthy")
		require.True(t, ok)
		assert.Equal(t, models.StatusSuccess, rec.Status)
	}
}

func TestRunCancellation(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once

	block := func(ctx context.Context, _ *device.Device, out *catalog.Outcome, _ catalog.Params) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		out.Pass("too late")

		return nil
	}

	reg := registryWith(t, catalog.Definition{Name: "hang", Func: block})
	rep := report.New(logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	r := newRunner(t, Config{Concurrency: 1}, reg, rep)
	require.NoError(t, r.Run(ctx, []*device.Device{testDevice("10.0.0.1")}, []catalog.Test{{Name: "stuck", Check: "hang"}}))

	rec, ok := rep.Get("10.0.0.1", "stuck")
	require.True(t, ok)
	assert.Equal(t, models.StatusError, rec.Status)
	assert.Contains(t, rec.Message, "canceled")
}

func TestRunTagFiltering(t *testing.T) {
	reg := registryWith(t, catalog.Definition{Name: "always_pass", Func: passCheck})
	rep := report.New(logger.NewTestLogger())

	devices := []*device.Device{
		testDevice("edge-1", "edge"),
		testDevice("core-1", "core"),
	}
	tests := []catalog.Test{
		{Name: "edge-only", Check: "always_pass", Tags: []string{"edge"}},
		{Name: "everywhere", Check: "always_pass"},
	}

	r := newRunner(t, Config{}, reg, rep)
	require.NoError(t, r.Run(context.Background(), devices, tests))

	assert.Equal(t, 3, rep.Len())

	_, ok := rep.Get("core-1", "edge-only")
	assert.False(t, ok, "tag selector must exclude core-1")

	_, ok = rep.Get("edge-1", "edge-only")
	assert.True(t, ok)
}

func TestRunRetryReplacesErrors(t *testing.T) {
	var calls int64

	flaky := func(_ context.Context, _ *device.Device, out *catalog.Outcome, _ catalog.Params) error {
		if atomic.AddInt64(&calls, 1) == 1 {
			return fmt.Errorf("transport hiccup")
		}

		out.Pass("recovered")

		return nil
	}

	reg := registryWith(t, catalog.Definition{Name: "flaky", Func: flaky})
	rep := report.New(logger.NewTestLogger())

	r := newRunner(t, Config{Concurrency: 1, Retries: 1}, reg, rep)
	require.NoError(t, r.Run(context.Background(), []*device.Device{testDevice("10.0.0.1")}, []catalog.Test{{Name: "flaky-test", Check: "flaky"}}))

	assert.Equal(t, 1, rep.Len(), "retry must replace, not append")

	rec, ok := rep.Get("10.0.0.1", "flaky-test")
	require.True(t, ok)
	assert.Equal(t, models.StatusSuccess, rec.Status)
	assert.Equal(t, 1, rec.Attempt)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestRunRetrySkipsFailures(t *testing.T) {
	var calls int64

	failing := func(_ context.Context, _ *device.Device, out *catalog.Outcome, _ catalog.Params) error {
		atomic.AddInt64(&calls, 1)
		out.Fail("out of compliance")

		return nil
	}

	reg := registryWith(t, catalog.Definition{Name: "failing", Func: failing})
	rep := report.New(logger.NewTestLogger())

	r := newRunner(t, Config{Retries: 2}, reg, rep)
	require.NoError(t, r.Run(context.Background(), []*device.Device{testDevice("10.0.0.1")}, []catalog.Test{{Name: "judged", Check: "failing"}}))

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "failure verdicts must not be retried")

	rec, _ := rep.Get("10.0.0.1", "judged")
	assert.Equal(t, models.StatusFailure, rec.Status)
	assert.Equal(t, 0, rec.Attempt)
}

func TestRunValidation(t *testing.T) {
	reg := registryWith(t, catalog.Definition{Name: "always_pass", Func: passCheck})
	rep := report.New(logger.NewTestLogger())
	r := newRunner(t, Config{}, reg, rep)

	t.Run("unestablished device", func(t *testing.T) {
		dev := testDevice("10.0.0.9")
		dev.Established = false

		err := r.Run(context.Background(), []*device.Device{dev}, []catalog.Test{{Name: "t", Check: "always_pass"}})
		require.ErrorIs(t, err, ErrDeviceNotEstablished)
		assert.Equal(t, 0, rep.Len())
	})

	t.Run("duplicate test name", func(t *testing.T) {
		err := r.Run(context.Background(), []*device.Device{testDevice("10.0.0.1")}, []catalog.Test{
			{Name: "same", Check: "always_pass"},
			{Name: "same", Check: "always_pass"},
		})
		require.ErrorIs(t, err, ErrDuplicateTestName)
	})

	t.Run("unknown check", func(t *testing.T) {
		err := r.Run(context.Background(), []*device.Device{testDevice("10.0.0.1")}, []catalog.Test{
			{Name: "ghost", Check: "no_such_check"},
		})
		require.ErrorIs(t, err, catalog.ErrUnknownCheck)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "defaults applied", cfg: Config{}},
		{name: "negative concurrency", cfg: Config{Concurrency: -1}, wantErr: errConcurrencyNegative},
		{name: "negative retries", cfg: Config{Retries: -1}, wantErr: errRetriesNegative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, defaultConcurrency, tt.cfg.Concurrency)
			assert.Equal(t, models.Duration(defaultTimeout), tt.cfg.DefaultTimeout)
		})
	}
}

// End-to-end through the built-in catalog: two routers, one over the
// uptime floor and one freshly rebooted.
func TestRunUptimeScenario(t *testing.T) {
	ctrl := gomock.NewController(t)

	makeDevice := func(host, uptime string) *device.Device {
		sess := device.NewMockSession(ctrl)
		sess.EXPECT().
			Execute(gomock.Any(), gomock.Any(), device.FormatText).
			Return(&device.Response{Outputs: []device.CommandOutput{
				{Command: "show system uptime", Output: uptime},
			}}, nil).
			AnyTimes()
		sess.EXPECT().Close().Return(nil).AnyTimes()

		dev := testDevice(host)
		dev.AttachSession(sess)

		return dev
	}

	devices := []*device.Device{
		makeDevice("10.0.0.1", "System uptime: 7200 seconds"),
		makeDevice("10.0.0.2", "System uptime: 120 seconds"),
	}

	rep := report.New(logger.NewTestLogger())
	r := newRunner(t, Config{Concurrency: 2}, catalog.Defaults(), rep)

	tests := []catalog.Test{{
		Name:   "uptime-floor",
		Check:  "verify_uptime",
		Params: catalog.Params{"minimum": 3600},
	}}

	require.NoError(t, r.Run(context.Background(), devices, tests))

	rec, ok := rep.Get("10.0.0.1", "uptime-floor")
	require.True(t, ok)
	assert.Equal(t, models.StatusSuccess, rec.Status)

	rec, ok = rep.Get("10.0.0.2", "uptime-floor")
	require.True(t, ok)
	assert.Equal(t, models.StatusFailure, rec.Status)

	summary := rep.Summary()
	assert.Equal(t, 2, summary.Total)
	assert.False(t, summary.Clean)
}
