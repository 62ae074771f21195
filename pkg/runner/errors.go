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

import "errors"

var (
	ErrDeviceNotEstablished = errors.New("device is not established; filter the device set first")
	ErrDuplicateTestName    = errors.New("duplicate test name")

	errConcurrencyNegative = errors.New("concurrency must not be negative")
	errRetriesNegative     = errors.New("retries must not be negative")
	errRegistryRequired    = errors.New("check registry is required")
	errReportRequired      = errors.New("report is required")
)
