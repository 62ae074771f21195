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

// Package catalog holds the test catalog: reusable check definitions, the
// per-run test specifications that bind parameters to them, and the outcome
// type checks report through.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/carverauto/fleetvet/pkg/device"
)

// CheckFunc is the contract implemented by test authors. It must, on every
// reachable code path, either set out to a terminal status or return an
// error; remote calls go through dev.Run.
type CheckFunc func(ctx context.Context, dev *device.Device, out *Outcome, params Params) error

// Definition is a registered, reusable check implementation.
type Definition struct {
	Name        string
	Description string

	// Requires lists parameter names that must be present in a test's
	// Params for the check to run; the harness skips the test otherwise.
	Requires []string

	Func CheckFunc
}

// Registry stores check definitions by name.
type Registry interface {
	Register(def Definition) error
	Get(name string) (Definition, error)
	Names() []string
}

type checkRegistry struct {
	defs map[string]Definition
}

// NewRegistry creates an empty check registry.
func NewRegistry() Registry {
	return &checkRegistry{defs: make(map[string]Definition)}
}

func (r *checkRegistry) Register(def Definition) error {
	if def.Name == "" {
		return ErrTestName
	}

	if _, ok := r.defs[def.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCheck, def.Name)
	}

	r.defs[def.Name] = def

	return nil
}

func (r *checkRegistry) Get(name string) (Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
	}

	return def, nil
}

func (r *checkRegistry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
