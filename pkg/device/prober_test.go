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

package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetvet/pkg/logger"
)

var errConnRefused = errors.New("connection refused")

// fakeDialer answers per-host with either a session or an error and records
// concurrency.
type fakeDialer struct {
	mu       sync.Mutex
	failFor  map[string]error
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func (f *fakeDialer) Dial(ctx context.Context, dev *Device) (Session, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := f.failFor[dev.Host]; ok {
		return nil, err
	}

	return &fakeSession{}, nil
}

type fakeSession struct{}

func (*fakeSession) Execute(context.Context, []string, Format) (*Response, error) {
	return &Response{}, nil
}

func (*fakeSession) Close() error { return nil }

func TestProbeAllMarksReachability(t *testing.T) {
	devices := []*Device{
		{Host: "10.0.0.1", Addr: "10.0.0.1:22"},
		{Host: "10.0.0.2", Addr: "10.0.0.2:22"},
		{Host: "10.0.0.3", Addr: "10.0.0.3:22"},
	}

	dialer := &fakeDialer{failFor: map[string]error{"10.0.0.2": errConnRefused}}
	prober := NewProber(dialer, nil, time.Second, 4, logger.NewTestLogger())

	// Unreachable devices must not surface errors; probing failure is data,
	// not an error.
	require.NoError(t, prober.ProbeAll(context.Background(), devices))

	assert.True(t, devices[0].Established)
	assert.True(t, devices[0].IsOnline)
	assert.False(t, devices[1].Established)
	assert.False(t, devices[1].IsOnline)
	assert.True(t, devices[2].Established)

	live := Established(devices)
	assert.Len(t, live, 2)
}

func TestProbeAllBoundsConcurrency(t *testing.T) {
	const limit = 2

	devices := make([]*Device, 8)
	for i := range devices {
		devices[i] = &Device{Host: "h", Addr: "h:22"}
	}

	dialer := &fakeDialer{delay: 10 * time.Millisecond}
	prober := NewProber(dialer, nil, time.Second, limit, logger.NewTestLogger())

	require.NoError(t, prober.ProbeAll(context.Background(), devices))
	assert.LessOrEqual(t, dialer.maxSeen, limit)
}

func TestProbeAllTimeoutMarksOffline(t *testing.T) {
	devices := []*Device{{Host: "10.0.0.9", Addr: "10.0.0.9:22"}}

	dialer := &fakeDialer{delay: 500 * time.Millisecond}
	prober := NewProber(dialer, nil, 20*time.Millisecond, 1, logger.NewTestLogger())

	require.NoError(t, prober.ProbeAll(context.Background(), devices))
	assert.False(t, devices[0].Established)
}

func TestReprobeRecovers(t *testing.T) {
	dev := &Device{Host: "10.0.0.1", Addr: "10.0.0.1:22"}

	dialer := &fakeDialer{failFor: map[string]error{"10.0.0.1": errConnRefused}}
	prober := NewProber(dialer, nil, time.Second, 1, logger.NewTestLogger())

	require.NoError(t, prober.ProbeAll(context.Background(), []*Device{dev}))
	require.False(t, dev.Established)

	// Re-probing is an explicit second call, not an internal retry.
	dialer.mu.Lock()
	delete(dialer.failFor, "10.0.0.1")
	dialer.mu.Unlock()

	require.NoError(t, prober.ProbeAll(context.Background(), []*Device{dev}))
	assert.True(t, dev.Established)
}
