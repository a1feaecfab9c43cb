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
	"path/filepath"
	"strings"

	"goscreenwriter/internal/render"
	"goscreenwriter/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetDraft is a watermarked reading copy: PDF and Fountain.
	PresetDraft PresetName = "draft"
	// PresetProduction carries scene numbers: PDF and FDX.
	PresetProduction PresetName = "production"
	// PresetInterchange is plain text formats only: FDX and Fountain.
	PresetInterchange PresetName = "interchange"
)

// Presets lists the known presets.
func Presets() []PresetName {
	return []PresetName{PresetDraft, PresetProduction, PresetInterchange}
}

// ParsePreset resolves a preset name, case-insensitively.
func ParsePreset(s string) (PresetName, error) {
	for _, p := range Presets() {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown preset %q", s)
}

// Preset holds the defaults a preset applies.
type Preset struct {
	Formats      []string
	SceneNumbers bool
	Watermark    string
	TitlePage    bool
}

// PresetDefaults returns the defaults of p.
func PresetDefaults(p PresetName) Preset {
	switch p {
	case PresetDraft:
		return Preset{Formats: []string{"pdf", "fountain"}, Watermark: "DRAFT", TitlePage: true}
	case PresetProduction:
		return Preset{Formats: []string{"pdf", "fdx"}, SceneNumbers: true, TitlePage: true}
	case PresetInterchange:
		return Preset{Formats: []string{"fdx", "fountain"}, TitlePage: true}
	default:
		return Preset{Formats: []string{"pdf"}, TitlePage: true}
	}
}

// BatchOptions controls batch export.
//
// Path semantics:
//   - If OutDir is empty or relative, outputs land in <project>/exports/<OutDir or preset>/.
//   - Single file formats are named after the title slug (night-shift.pdf).
//   - PNG pages go to a png/ subfolder.
type BatchOptions struct {
	Preset PresetName
	// Formats overrides the preset formats: pdf, fdx, fountain, png.
	Formats []string
	// SceneNumbers and Watermark override the preset when set.
	SceneNumbers *bool
	Watermark    *string
	OutDir       string
	BatchSize    int
	DPI          float64
	FontPath     string
	// Progress receives the PDF progress.
	Progress func(percent int)
}

// BatchExport runs the exports of a preset and returns the written paths.
func BatchExport(ctx context.Context, ph *storage.ProjectHandle, opt BatchOptions) ([]string, error) {
	if ph == nil {
		return nil, contentError("batch", errors.New("project handle is nil"), "")
	}
	pre := PresetDefaults(opt.Preset)
	formats := opt.Formats
	if len(formats) == 0 {
		formats = pre.Formats
	}
	ro := render.Options{SceneNumbers: pre.SceneNumbers, Watermark: pre.Watermark, TitlePage: pre.TitlePage}
	if opt.SceneNumbers != nil {
		ro.SceneNumbers = *opt.SceneNumbers
	}
	if opt.Watermark != nil {
		ro.Watermark = *opt.Watermark
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
		if baseOut == "" {
			baseOut = "batch"
		}
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(ph.ExportsDir(), baseOut)
	}

	var out []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		var (
			path string
			err  error
		)
		switch f {
		case "pdf":
			path, _, err = ExportPDF(ctx, ph, filepath.Join(baseOut, FileName(ph, ".pdf")), PDFOptions{
				Options: ro, BatchSize: opt.BatchSize, Progress: opt.Progress,
			})
		case "fdx":
			path, err = ExportFDX(ph, filepath.Join(baseOut, FileName(ph, ".fdx")), FDXOptions{SceneNumbers: ro.SceneNumbers, TitlePage: ro.TitlePage})
		case "fountain":
			path, err = ExportFountain(ph, filepath.Join(baseOut, FileName(ph, ".fountain")), FountainOptions{SceneNumbers: ro.SceneNumbers, TitlePage: ro.TitlePage})
		case "png":
			var paths []string
			paths, err = ExportPNGPages(ctx, ph, filepath.Join(baseOut, "png"), PNGOptions{Options: ro, DPI: opt.DPI, FontPath: opt.FontPath})
			out = append(out, paths...)
		default:
			return out, contentError("batch", fmt.Errorf("unknown format: %s", f), "use pdf, fdx, fountain or png")
		}
		if err != nil {
			return out, err
		}
		if path != "" {
			out = append(out, path)
		}
	}
	return out, nil
}
