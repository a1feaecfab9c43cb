/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"go.uber.org/multierr"
)

func TestManifestConformsToSchema(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, sampleProject("Schema Test"))
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	data, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	schemaLoader := gojsonschema.NewBytesLoader(ManifestSchema())
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("manifest does not conform to schema")
	}
}

func TestValidateManifestReportsEveryViolation(t *testing.T) {
	doc := `{"name": "", "screenplay": {"elements": [
		{"id": "a", "type": "montage", "content": "x", "sequence": 1},
		{"id": "b", "type": "action", "content": "y", "sequence": 0}
	]}}`
	err := ValidateManifest([]byte(doc))
	if err == nil {
		t.Fatalf("expected violations")
	}
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if n := len(multierr.Errors(err)); n < 3 {
		t.Fatalf("expected at least 3 violations, got %d: %v", n, err)
	}
}
