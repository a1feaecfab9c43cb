/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preview

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"goscreenwriter/internal/layout"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/render"
	"goscreenwriter/internal/textlayout"
)

// DefaultDPI is the screen resolution pages are rasterized at.
const DefaultDPI = 96

// watermarkPt is the watermark font size.
const watermarkPt = 72

// Renderer rasterizes pages from placements. The zero value draws with the
// built-in bitmap face at DefaultDPI.
type Renderer struct {
	DPI   float64
	Fonts textlayout.Provider
}

// NewRenderer returns a renderer that loads the monospace font at fontPath
// and falls back to the bitmap face when the path is empty or unreadable.
func NewRenderer(dpi float64, fontPath string) *Renderer {
	r := &Renderer{DPI: dpi}
	if fontPath != "" {
		r.Fonts = &textlayout.TTFProvider{Path: fontPath}
	}
	return r
}

func (r *Renderer) dpi() float64 {
	if r == nil || r.DPI <= 0 {
		return DefaultDPI
	}
	return r.DPI
}

func (r *Renderer) fonts() textlayout.Provider {
	if r == nil || r.Fonts == nil {
		return textlayout.BasicProvider{}
	}
	return r.Fonts
}

// Size returns the pixel size of a rendered page.
func (r *Renderer) Size() (w, h int) {
	d := r.dpi()
	return int(math.Round(layout.PageWidth * d)), int(math.Round(layout.PageHeight * d))
}

// RenderPage draws page n of res.
func (r *Renderer) RenderPage(res pagination.Result, n int, opts render.Options) image.Image {
	return r.Draw(render.Page(res.Page(n), n, opts), opts.Watermark)
}

// Draw rasterizes runs onto a white US Letter page.
func (r *Renderer) Draw(runs []render.Run, watermark string) image.Image {
	d := r.dpi()
	w, h := r.Size()
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if watermark != "" {
		face, _ := r.fonts().Resolve(textlayout.FontSpec{SizePt: watermarkPt, DPI: d})
		cx, cy := float64(w)/2, float64(h)/2
		dc.Push()
		dc.SetFontFace(face)
		dc.SetRGBA(0, 0, 0, 0.12)
		dc.RotateAbout(gg.Radians(-layout.WatermarkAngle), cx, cy)
		dc.DrawStringAnchored(watermark, cx, cy, 0.5, 0.5)
		dc.Pop()
	}

	face, _ := r.fonts().Resolve(textlayout.FontSpec{SizePt: layout.FontSizePt, DPI: d})
	dc.SetFontFace(face)
	dc.SetRGB(0, 0, 0)
	for _, run := range runs {
		x, y := run.X*d, run.Baseline*d
		switch run.Align {
		case render.AlignRight:
			dc.DrawStringAnchored(run.Text, x, y, 1, 0)
		case render.AlignCenter:
			dc.DrawStringAnchored(run.Text, x, y, 0.5, 0)
		default:
			dc.DrawString(run.Text, x, y)
		}
	}
	return dc.Image()
}

// Thumbnail scales img to width pixels keeping the aspect ratio.
func Thumbnail(img image.Image, width int) image.Image {
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash fingerprints the content of one page. Two pages with equal hashes
// render to the same image.
func Hash(placements []pagination.Placement, opts render.Options) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(struct {
		P []pagination.Placement
		O render.Options
	}{placements, opts})
	return hex.EncodeToString(h.Sum(nil)[:16])
}
