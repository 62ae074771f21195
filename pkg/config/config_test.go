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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetvet/pkg/logger"
)

type testConfig struct {
	Name        string         `json:"name"`
	Concurrency int            `json:"concurrency"`
	Nested      nestedSection  `json:"nested"`
	Optional    *nestedSection `json:"optional"`
	Hosts       []string       `json:"hosts"`
}

type nestedSection struct {
	Enabled bool   `json:"enabled"`
	Value   string `json:"value"`
}

var errNameRequired = errors.New("name is required")

func (c *testConfig) Validate() error {
	if c.Name == "" {
		return errNameRequired
	}

	if c.Concurrency == 0 {
		c.Concurrency = 8
	}

	return nil
}

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateFromFile(t *testing.T) {
	path := writeTempJSON(t, `{"name": "run1", "hosts": ["a", "b"]}`)

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "run1", cfg.Name)
	assert.Equal(t, []string{"a", "b"}, cfg.Hosts)
	assert.Equal(t, 8, cfg.Concurrency, "Validate should fill the default")
}

func TestLoadAndValidateRejectsInvalid(t *testing.T) {
	path := writeTempJSON(t, `{"concurrency": 4}`)

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	err := loader.LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, errNameRequired)
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	var cfg testConfig

	loader := NewConfig(nil)
	err := loader.LoadAndValidate(context.Background(), "/nonexistent/config.json", &cfg)
	require.Error(t, err)
}

func TestLoadAndValidateBadSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "carrier-pigeon")

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	err := loader.LoadAndValidate(context.Background(), "ignored", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("FLEETVET_NAME", "from-env")
	t.Setenv("FLEETVET_CONCURRENCY", "32")
	t.Setenv("FLEETVET_NESTED_ENABLED", "true")
	t.Setenv("FLEETVET_NESTED_VALUE", "deep")
	t.Setenv("FLEETVET_HOSTS", "x, y,z")

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 32, cfg.Concurrency)
	assert.True(t, cfg.Nested.Enabled)
	assert.Equal(t, "deep", cfg.Nested.Value)
	assert.Equal(t, []string{"x", "y", "z"}, cfg.Hosts)
	assert.Nil(t, cfg.Optional, "unconfigured optional section stays nil")
}

func TestEnvLoaderOptionalSection(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("FLEETVET_NAME", "n")
	t.Setenv("FLEETVET_OPTIONAL_VALUE", "present")

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), "", &cfg))

	require.NotNil(t, cfg.Optional)
	assert.Equal(t, "present", cfg.Optional.Value)
}

func TestEnvLoaderConfigJSON(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("FLEETVET_CONFIG_JSON", `{"name": "whole-doc", "concurrency": 2}`)

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "whole-doc", cfg.Name)
	assert.Equal(t, 2, cfg.Concurrency)
}
