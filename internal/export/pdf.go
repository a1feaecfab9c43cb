/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime"

	"github.com/jung-kurt/gofpdf"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/layout"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/render"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/version"
)

// DefaultBatchSize is the number of placements drawn between yields.
const DefaultBatchSize = 200

// watermarkPt is the watermark font size in points.
const watermarkPt = 72

// PDFOptions controls PDF export.
type PDFOptions struct {
	render.Options
	// BatchSize bounds the placements drawn between progress reports and
	// scheduler yields. Zero means DefaultBatchSize.
	BatchSize int
	// Progress, when set, receives 0..100 as pages are drawn.
	Progress func(percent int)
	Title    string
	Author   string
}

func (o PDFOptions) batch() int {
	if o.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

func (o PDFOptions) report(p int) {
	if o.Progress != nil {
		o.Progress(p)
	}
}

// Stats summarizes what a PDF render drew.
type Stats struct {
	// Pages is the number of body pages; the title page is not counted.
	Pages      int
	TitlePage  bool
	Placements int
	// Lines counts the body text lines drawn per element id.
	Lines map[string]int
}

type pdfWriter struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newPDFWriter(opt PDFOptions) *pdfWriter {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "in",
		Size:    gofpdf.SizeType{Wd: layout.PageWidth, Ht: layout.PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("GoScreenwriter "+version.String(), true)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	pdf.SetFont(layout.FontFamily, "", layout.FontSizePt)
	// core fonts are cp1252 encoded
	return &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (w *pdfWriter) run(r render.Run) {
	s := w.tr(r.Text)
	x := r.X
	switch r.Align {
	case render.AlignRight:
		x -= w.pdf.GetStringWidth(s)
	case render.AlignCenter:
		x -= w.pdf.GetStringWidth(s) / 2
	}
	w.pdf.Text(x, r.Baseline, s)
}

func (w *pdfWriter) watermark(text string) {
	if text == "" {
		return
	}
	s := w.tr(text)
	cx, cy := layout.PageWidth/2, layout.PageHeight/2
	w.pdf.SetFont(layout.FontFamily, "B", watermarkPt)
	width := w.pdf.GetStringWidth(s)
	w.pdf.SetAlpha(0.12, "Normal")
	w.pdf.TransformBegin()
	w.pdf.TransformRotate(layout.WatermarkAngle, cx, cy)
	w.pdf.Text(cx-width/2, cy, s)
	w.pdf.TransformEnd()
	w.pdf.SetAlpha(1, "Normal")
	w.pdf.SetFont(layout.FontFamily, "", layout.FontSizePt)
}

// RenderPDF draws a pagination result. Pages are drawn in batches of
// opt.BatchSize placements; between batches progress is reported, the
// goroutine yields and ctx is checked. tp is drawn first, unnumbered,
// when opt.TitlePage is set and tp has content.
func RenderPDF(ctx context.Context, out io.Writer, res pagination.Result, tp *domain.TitlePage, opt PDFOptions) (Stats, error) {
	const op = "pdf"
	l := applog.WithOperation(applog.WithComponent("export"), op)
	st := Stats{Lines: map[string]int{}}
	if err := checkCancel(ctx, op); err != nil {
		return st, err
	}
	w := newPDFWriter(opt)
	if opt.TitlePage && !tp.Empty() {
		w.pdf.AddPage()
		for _, r := range render.TitlePage(tp) {
			w.run(r)
		}
		st.TitlePage = true
	}

	total := max(len(res.Placements), 1)
	batch := opt.batch()
	done := 0
	opt.report(0)
	for i, page := range res.Pages() {
		n := i + 1
		w.pdf.AddPage()
		w.watermark(opt.Watermark)
		for _, r := range render.Page(nil, n, opt.Options) {
			w.run(r)
		}
		for _, p := range page {
			for _, r := range render.Placement(p, opt.Options) {
				if r.Kind == render.KindLine {
					st.Lines[r.ID]++
				}
				w.run(r)
			}
			done++
			if done%batch == 0 {
				opt.report(done * 100 / total)
				runtime.Gosched()
				if err := checkCancel(ctx, op); err != nil {
					l.Info("pdf export abandoned", "placements", done, "total", total)
					return st, err
				}
			}
		}
		st.Pages = n
	}
	st.Placements = done
	if err := w.pdf.Error(); err != nil {
		return st, contentError(op, err, "the script may contain characters the Courier core font cannot encode")
	}
	if err := w.pdf.Output(out); err != nil {
		return st, envError(op, err, "check that the output location is writable")
	}
	opt.report(100)
	l.Debug("pdf rendered", "pages", st.Pages, "placements", st.Placements)
	return st, nil
}

// PDF paginates sp and renders it.
func PDF(ctx context.Context, out io.Writer, sp domain.Screenplay, opt PDFOptions) (Stats, error) {
	res := pagination.New(pagination.Options{SceneNumbers: opt.SceneNumbers}).Paginate(sp.Elements)
	return RenderPDF(ctx, out, res, sp.TitlePage, opt)
}

// ExportPDF writes the project's screenplay as PDF. A relative or empty
// outPath lands in the project's exports folder; the file is replaced
// atomically so an abandoned export never leaves a partial PDF behind.
func ExportPDF(ctx context.Context, ph *storage.ProjectHandle, outPath string, opt PDFOptions) (string, Stats, error) {
	if ph == nil {
		return "", Stats{}, contentError("pdf", errors.New("project handle is nil"), "")
	}
	if opt.Title == "" {
		opt.Title = DocumentTitle(ph)
	}
	if opt.Author == "" && ph.Project.Screenplay.TitlePage != nil {
		opt.Author = ph.Project.Screenplay.TitlePage.Author
	}
	var buf bytes.Buffer
	st, err := PDF(ctx, &buf, ph.Project.Screenplay, opt)
	if err != nil {
		return "", st, err
	}
	path, err := writeOutput(ph, outPath, ".pdf", buf.Bytes())
	return path, st, err
}
