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

package main

import (
	"errors"
	"fmt"

	"github.com/carverauto/fleetvet/pkg/archive"
	"github.com/carverauto/fleetvet/pkg/events"
	"github.com/carverauto/fleetvet/pkg/logger"
	"github.com/carverauto/fleetvet/pkg/models"
	"github.com/carverauto/fleetvet/pkg/runner"
)

const (
	renderTable = "table"
	renderJSON  = "json"
	renderLog   = "log"

	failOnFailure = "failure"
	failOnError   = "error"
	failOnNever   = "never"
)

var (
	errInventoryRequired = errors.New("inventory path is required")
	errCatalogRequired   = errors.New("catalog path is required")
	errUnknownRender     = errors.New("render must be table, json, or log")
	errUnknownFailOn     = errors.New("fail_on must be failure, error, or never")
)

// ProbeConfig bounds the connection sweep that precedes a run.
type ProbeConfig struct {
	Timeout     models.Duration `json:"timeout,omitempty"`
	Concurrency int             `json:"concurrency,omitempty"`
}

// AppConfig is the fleetvet JSON config file.
type AppConfig struct {
	Inventory string          `json:"inventory"`
	Catalog   string          `json:"catalog"`
	Tests     []string        `json:"tests,omitempty"`
	Logging   *logger.Config  `json:"logging,omitempty"`
	Runner    runner.Config   `json:"runner,omitempty"`
	Probe     ProbeConfig     `json:"probe,omitempty"`
	NATS      *events.Config  `json:"nats,omitempty"`
	Archive   *archive.Config `json:"archive,omitempty"`
	Render    string          `json:"render,omitempty"`
	FailOn    string          `json:"fail_on,omitempty"`
}

// Validate fills defaults and rejects bad enum values.
func (c *AppConfig) Validate() error {
	if c.Inventory == "" {
		return errInventoryRequired
	}

	if c.Catalog == "" {
		return errCatalogRequired
	}

	if c.Render == "" {
		c.Render = renderTable
	}

	switch c.Render {
	case renderTable, renderJSON, renderLog:
	default:
		return fmt.Errorf("%w: %q", errUnknownRender, c.Render)
	}

	if c.FailOn == "" {
		c.FailOn = failOnFailure
	}

	switch c.FailOn {
	case failOnFailure, failOnError, failOnNever:
	default:
		return fmt.Errorf("%w: %q", errUnknownFailOn, c.FailOn)
	}

	return c.Runner.Validate()
}
