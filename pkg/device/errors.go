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

import "errors"

var (
	ErrNotEstablished   = errors.New("device is not established")
	ErrNoCommands       = errors.New("no commands to execute")
	ErrNoAuthMethod     = errors.New("no authentication method configured")
	ErrJSONUnsupported  = errors.New("structured output not supported for platform")
	ErrSessionClosed    = errors.New("session is closed")
	errCommandCanceled  = errors.New("command canceled")
	errSNMPEmptyVarbind = errors.New("snmp returned no usable varbinds")
)
