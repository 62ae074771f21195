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
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/fleetvet/pkg/logger"
)

const (
	defaultProbeTimeout     = 15 * time.Second
	defaultProbeConcurrency = 32
)

// Prober establishes sessions for an inventory concurrently. Probe failures
// are expected for some fraction of a large inventory: they mark the handle
// offline and are logged, never returned.
type Prober struct {
	dialer      Dialer
	enricher    *SNMPEnricher
	timeout     time.Duration
	concurrency int
	logger      logger.Logger
}

// NewProber creates a prober. enricher may be nil to skip SNMP model lookup.
func NewProber(dialer Dialer, enricher *SNMPEnricher, timeout time.Duration, concurrency int, log logger.Logger) *Prober {
	if timeout == 0 {
		timeout = defaultProbeTimeout
	}

	if concurrency <= 0 {
		concurrency = defaultProbeConcurrency
	}

	return &Prober{
		dialer:      dialer,
		enricher:    enricher,
		timeout:     timeout,
		concurrency: concurrency,
		logger:      log,
	}
}

// ProbeAll dials every device concurrently, bounded by the prober's
// concurrency limit, and updates each handle's connectivity flags in place.
// It is one-shot per call; calling it again is the explicit re-probe
// operation. The only error returned is ctx cancellation.
func (p *Prober) ProbeAll(ctx context.Context, devices []*Device) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, dev := range devices {
		dev := dev
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				dev.MarkOffline()
				return err
			}

			p.probe(gctx, dev)

			return nil
		})
	}

	return g.Wait()
}

func (p *Prober) probe(ctx context.Context, dev *Device) {
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()

	sess, err := p.dialer.Dial(dialCtx, dev)
	if err != nil {
		dev.MarkOffline()

		p.logger.Warn().
			Str("device", dev.Host).
			Str("addr", dev.Addr).
			Dur("elapsed", time.Since(started)).
			Err(err).
			Msg("Probe failed, marking device offline")

		return
	}

	dev.AttachSession(sess)

	if p.enricher != nil {
		if err := p.enricher.Enrich(dev); err != nil {
			p.logger.Debug().
				Str("device", dev.Host).
				Err(err).
				Msg("SNMP enrichment failed")
		}
	}

	p.logger.Info().
		Str("device", dev.Host).
		Str("model", dev.Model).
		Dur("elapsed", time.Since(started)).
		Msg("Device established")
}

// CloseAll tears down every established session. Used at the end of a run.
func (p *Prober) CloseAll(devices []*Device) {
	for _, dev := range devices {
		if err := dev.Close(); err != nil {
			p.logger.Debug().
				Str("device", dev.Host).
				Err(err).
				Msg("Error closing session")
		}
	}
}
