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
	"time"

	"github.com/carverauto/fleetvet/pkg/models"
)

const (
	defaultConcurrency = 16
	defaultTimeout     = 30 * time.Second
)

// Config controls scheduling behavior for a run.
type Config struct {
	// Concurrency caps the number of test executions in flight at once.
	Concurrency int `json:"concurrency"`

	// DefaultTimeout bounds a single test execution when the test itself
	// does not carry a timeout.
	DefaultTimeout models.Duration `json:"default_timeout"`

	// Retries is the number of additional passes over units that ended
	// with an error status. Failures are judgments and are never retried.
	Retries int `json:"retries"`
}

// Validate fills in defaults and rejects nonsensical settings.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return errConcurrencyNegative
	}

	if c.Retries < 0 {
		return errRetriesNegative
	}

	if c.Concurrency == 0 {
		c.Concurrency = defaultConcurrency
	}

	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = models.Duration(defaultTimeout)
	}

	return nil
}
