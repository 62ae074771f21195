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

package report

import "errors"

var (
	// ErrDuplicateResult means a record already exists for the (device,
	// test) pair. It signals a scheduling bug, not a device fault, and is
	// raised to the caller instead of silently overwriting.
	ErrDuplicateResult = errors.New("duplicate result for device/test pair")

	// ErrNotTerminal means a record arrived with a non-terminal status;
	// the harness guarantees this never happens in a correct engine.
	ErrNotTerminal = errors.New("record status is not terminal")
)
