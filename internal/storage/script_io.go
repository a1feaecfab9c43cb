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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DraftPath returns the path of a plain-text draft (imported Fountain
// source, exported text) kept under drafts/. It is empty for a nil handle.
func DraftPath(ph *ProjectHandle, name string) string {
	if ph == nil {
		return ""
	}
	return filepath.Join(ph.Root, DraftsDirName, filepath.Base(name))
}

// ReadDraft returns the draft text, or "" when the file does not exist.
func ReadDraft(ph *ProjectHandle, name string) (string, error) {
	p := DraftPath(ph, name)
	if p == "" {
		return "", errors.New("nil ProjectHandle")
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read draft: %w", err)
	}
	return string(b), nil
}

// WriteDraft stores text atomically under drafts/.
func WriteDraft(ph *ProjectHandle, name, text string) error {
	p := DraftPath(ph, name)
	if p == "" {
		return errors.New("nil ProjectHandle")
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("draft name is required")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("ensure drafts dir: %w", err)
	}
	return WriteFileAtomic(p, []byte(text))
}
