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

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:   "nil config uses defaults",
			config: nil,
		},
		{
			name:   "explicit level",
			config: &Config{Level: "warn", Output: "stderr"},
		},
		{
			name:   "debug overrides level",
			config: &Config{Level: "error", Debug: true},
		},
		{
			name:    "invalid level",
			config:  &Config{Level: "shouting"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNewComponent(t *testing.T) {
	log, err := NewComponent("runner", &Config{Level: "info"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNewTestLoggerDiscards(t *testing.T) {
	log := NewTestLogger()

	// Must not panic and must not write anywhere.
	log.Info().Str("k", "v").Msg("discarded")
	log.Error().Msg("discarded too")
}
