/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"goscreenwriter/internal/storage"
)

// DocumentTitle is the title used for metadata and default file names:
// the title page title, else the project name.
func DocumentTitle(ph *storage.ProjectHandle) string {
	if tp := ph.Project.Screenplay.TitlePage; tp != nil && strings.TrimSpace(tp.Title) != "" {
		return strings.TrimSpace(tp.Title)
	}
	if s := strings.TrimSpace(ph.Project.Name); s != "" {
		return s
	}
	return "screenplay"
}

// FileName returns the default export file name for ext (".pdf", ".fdx",
// ...), derived from the document title.
func FileName(ph *storage.ProjectHandle, ext string) string {
	s := slug.Make(DocumentTitle(ph))
	if s == "" {
		s = "screenplay"
	}
	return s + ext
}

// resolveOut maps an empty outPath to the default name and places
// relative paths under the project's exports folder.
func resolveOut(ph *storage.ProjectHandle, outPath, ext string) string {
	if strings.TrimSpace(outPath) == "" {
		outPath = FileName(ph, ext)
	}
	if filepath.IsAbs(outPath) {
		return outPath
	}
	return filepath.Join(ph.ExportsDir(), outPath)
}

func writeOutput(ph *storage.ProjectHandle, outPath, ext string, data []byte) (string, error) {
	op := strings.TrimPrefix(ext, ".")
	path := resolveOut(ph, outPath, ext)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", envError(op, err, "check that "+dir+" can be created")
	}
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return "", envError(op, err, "check that "+dir+" is writable and the disk is not full")
	}
	return path, nil
}
