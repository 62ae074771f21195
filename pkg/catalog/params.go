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
	"time"
)

// Params is the named-parameter map of one test specification. The engine
// treats it as opaque; the typed getters below are for check authors.
// A missing declared-required parameter makes the harness skip the test
// before the check runs; a present-but-malformed one surfaces from these
// getters as an error the check propagates, which classifies as
// models.StatusError.
type Params map[string]interface{}

// Has reports whether the parameter is present, regardless of type.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// String returns a string parameter.
func (p Params) String(name string) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrParamMissing, name)
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrParamWrongType, name, v)
	}

	return s, nil
}

// Int returns an integer parameter. YAML decodes small numbers as int and
// JSON as float64; both are accepted.
func (p Params) Int(name string) (int, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParamMissing, name)
	}

	switch value := v.(type) {
	case int:
		return value, nil
	case int64:
		return int(value), nil
	case float64:
		if value != float64(int(value)) {
			return 0, fmt.Errorf("%w: %q is not a whole number", ErrParamWrongType, name)
		}

		return int(value), nil
	default:
		return 0, fmt.Errorf("%w: %q is %T, want integer", ErrParamWrongType, name, v)
	}
}

// Duration returns a duration parameter given either as a "90s" string or a
// number of seconds.
func (p Params) Duration(name string) (time.Duration, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParamMissing, name)
	}

	switch value := v.(type) {
	case string:
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrParamWrongType, name, err)
		}

		return d, nil
	case int:
		return time.Duration(value) * time.Second, nil
	case int64:
		return time.Duration(value) * time.Second, nil
	case float64:
		return time.Duration(value * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("%w: %q is %T, want duration", ErrParamWrongType, name, v)
	}
}

// StringSlice returns a list-of-strings parameter.
func (p Params) StringSlice(name string) ([]string, error) {
	v, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrParamMissing, name)
	}

	switch value := v.(type) {
	case []string:
		return value, nil
	case []interface{}:
		out := make([]string, 0, len(value))

		for _, item := range value {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %q contains %T, want string", ErrParamWrongType, name, item)
			}

			out = append(out, s)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q is %T, want string list", ErrParamWrongType, name, v)
	}
}
