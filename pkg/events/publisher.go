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

// Package events publishes run results as CloudEvents on NATS JetStream.
// Publishing is best effort; a broker outage never fails a run.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/fleetvet/pkg/logger"
	"github.com/carverauto/fleetvet/pkg/models"
	"github.com/carverauto/fleetvet/pkg/report"
)

const (
	defaultStream = "fleetvet-runs"

	eventSource       = "fleetvet/runner"
	typeRunCompleted  = "com.carverauto.fleetvet.run.completed"
	typeRecordCreated = "com.carverauto.fleetvet.record.created"

	subjectRunCompleted = "fleetvet.runs.completed"
	subjectRecords      = "fleetvet.runs.records"
)

var errNATSURLRequired = errors.New("nats url is required")

// Config selects the broker and stream for run events.
type Config struct {
	URL    string `json:"url"`
	Stream string `json:"stream,omitempty"`
}

// Publisher wraps a JetStream context for the run event stream.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
	logger logger.Logger
}

// Connect dials NATS, ensures the run stream exists, and returns a
// Publisher bound to it.
func Connect(ctx context.Context, cfg Config, log logger.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errNATSURLRequired
	}

	stream := cfg.Stream
	if stream == "" {
		stream = defaultStream
	}

	nc, err := nats.Connect(cfg.URL,
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Warn().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err = js.Stream(ctx, stream); err != nil {
		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     stream,
			Subjects: []string{"fleetvet.runs.>"},
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create or get stream %s: %w", stream, err)
		}
	}

	return &Publisher{nc: nc, js: js, stream: stream, logger: log}, nil
}

// PublishRunCompleted emits one summary event for the whole run.
func (p *Publisher) PublishRunCompleted(ctx context.Context, summary report.Summary) error {
	now := time.Now()

	return p.publish(ctx, models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            typeRunCompleted,
		DataContentType: "application/json",
		Subject:         subjectRunCompleted,
		Time:            &now,
		Data:            summary,
	})
}

// PublishRecords emits one event per result record.
func (p *Publisher) PublishRecords(ctx context.Context, runID string, records []models.Record) error {
	for i := range records {
		event := models.CloudEvent{
			SpecVersion:     "1.0",
			ID:              uuid.New().String(),
			Source:          eventSource,
			Type:            typeRecordCreated,
			DataContentType: "application/json",
			Subject:         subjectRecords,
			Time:            &records[i].FinishedAt,
			Data: struct {
				RunID  string        `json:"run_id"`
				Record models.Record `json:"record"`
			}{RunID: runID, Record: records[i]},
		}

		if err := p.publish(ctx, event); err != nil {
			return err
		}
	}

	return nil
}

func (p *Publisher) publish(ctx context.Context, event models.CloudEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("Published run event")

	return nil
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
