/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/multierr"
)

//go:embed screenplay.schema.json
var manifestSchema []byte

// ManifestSchema returns the JSON schema every screenplay.json must satisfy.
func ManifestSchema() []byte { return manifestSchema }

// ErrSchema is wrapped by ValidateManifest for documents that parse but do
// not conform.
var ErrSchema = errors.New("manifest does not conform to schema")

// ValidateManifest checks raw manifest bytes against the embedded schema.
// All violations are reported, combined with multierr.
func ValidateManifest(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(manifestSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if res.Valid() {
		return nil
	}
	var all error
	for _, e := range res.Errors() {
		all = multierr.Append(all, fmt.Errorf("%w: %s", ErrSchema, e.String()))
	}
	return all
}
