/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/preview"
	"goscreenwriter/internal/render"
	"goscreenwriter/internal/storage"
)

// PNGOptions controls per-page raster export.
type PNGOptions struct {
	render.Options
	// DPI defaults to 150.
	DPI float64
	// FontPath is a monospace TTF; empty draws with the built-in bitmap face.
	FontPath string
	// Pages limits the export to these 1-based pages; empty means all.
	Pages []int
}

// ExportPNGPages renders pages as <name>-page-<n>.png into outDir, which is
// placed under the project's exports folder when relative. It returns the
// written paths in page order.
func ExportPNGPages(ctx context.Context, ph *storage.ProjectHandle, outDir string, opt PNGOptions) ([]string, error) {
	const op = "png"
	if ph == nil {
		return nil, contentError(op, errors.New("project handle is nil"), "")
	}
	if opt.DPI <= 0 {
		opt.DPI = 150
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(ph.ExportsDir(), outDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, envError(op, err, "check that "+outDir+" can be created")
	}
	res := pagination.New(pagination.Options{SceneNumbers: opt.SceneNumbers}).Paginate(ph.Elements())
	r := preview.NewRenderer(opt.DPI, opt.FontPath)
	pages := opt.Pages
	if len(pages) == 0 {
		for n := 1; n <= res.PageCount; n++ {
			pages = append(pages, n)
		}
	}
	base := FileName(ph, "")
	var out []string
	for _, n := range pages {
		if n < 1 || n > res.PageCount {
			continue
		}
		if err := checkCancel(ctx, op); err != nil {
			return out, err
		}
		data, err := preview.EncodePNG(r.RenderPage(res, n, opt.Options))
		if err != nil {
			return out, contentError(op, err, "")
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s-page-%d.png", base, n))
		if err := storage.WriteFileAtomic(path, data); err != nil {
			return out, envError(op, err, "check that "+outDir+" is writable")
		}
		out = append(out, path)
	}
	return out, nil
}
