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

package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/carverauto/fleetvet/pkg/models"
)

// Test is one entry of a run's catalog: a named binding of a registered
// check to concrete parameters. Names are unique within one catalog.
type Test struct {
	Name string `yaml:"name" json:"name"`

	// Check names the registered definition to run; empty means the test
	// name doubles as the check name.
	Check string `yaml:"check,omitempty" json:"check,omitempty"`

	Params  Params          `yaml:"params,omitempty" json:"params,omitempty"`
	Timeout models.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Tags restrict the test to devices carrying all of them. The filtering
	// happens before scheduling, not inside the harness.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// CheckName resolves the definition name this test runs.
func (t *Test) CheckName() string {
	if t.Check != "" {
		return t.Check
	}

	return t.Name
}

type catalogFile struct {
	Tests []Test `yaml:"tests"`
}

// Load reads a YAML catalog file and validates test-name uniqueness.
func Load(path string) ([]Test, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog '%s': %w", path, err)
	}

	return Parse(data)
}

// Parse decodes catalog YAML.
func Parse(data []byte) ([]Test, error) {
	var file catalogFile

	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Tests))

	for i := range file.Tests {
		t := &file.Tests[i]

		if t.Name == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrTestName, i)
		}

		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTest, t.Name)
		}

		seen[t.Name] = struct{}{}
	}

	return file.Tests, nil
}

// Select narrows tests to the named subset, preserving catalog order. An
// empty selection keeps everything.
func Select(tests []Test, names []string) ([]Test, error) {
	if len(names) == 0 {
		return tests, nil
	}

	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}

	selected := make([]Test, 0, len(names))

	for _, t := range tests {
		if _, ok := want[t.Name]; ok {
			selected = append(selected, t)
			delete(want, t.Name)
		}
	}

	for n := range want {
		return nil, fmt.Errorf("%w: selected test %s not in catalog", ErrUnknownCheck, n)
	}

	return selected, nil
}
