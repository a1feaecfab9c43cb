/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// FontSpec describes a requested raster face.
type FontSpec struct {
	SizePt float64
	DPI    float64
}

// Metrics are the resolved face metrics in pixels.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Provider maps a FontSpec to a concrete face for raster preview output.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider always returns basicfont.Face7x13. It ignores the requested
// size and is meant for tests and environments without a TTF on disk.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

// TTFProvider loads a monospace TrueType/OpenType font from disk once and
// builds faces for each requested size. It falls back to Fallback (or
// BasicProvider) when the file cannot be read or parsed.
type TTFProvider struct {
	Path     string
	Fallback Provider

	once sync.Once
	font *opentype.Font
	err  error
}

// Err reports the load error, if any, after the first Resolve.
func (p *TTFProvider) Err() error { return p.err }

func (p *TTFProvider) load() {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		p.err = fmt.Errorf("read font %s: %w", p.Path, err)
		return
	}
	f, err := opentype.Parse(data)
	if err != nil {
		p.err = fmt.Errorf("parse font %s: %w", p.Path, err)
		return
	}
	p.font = f
}

func (p *TTFProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	p.once.Do(p.load)
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	if spec.DPI <= 0 {
		spec.DPI = 72
	}
	if p.font != nil {
		face, err := opentype.NewFace(p.font, &opentype.FaceOptions{Size: spec.SizePt, DPI: spec.DPI, Hinting: font.HintingFull})
		if err == nil {
			return face, metricsOf(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Measure returns the advance width in pixels of s drawn with face.
func Measure(face font.Face, s string) float64 {
	d := &font.Drawer{Face: face}
	return fixedToFloat(d.MeasureString(s))
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
