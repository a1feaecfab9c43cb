/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/export"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/preview"
	"goscreenwriter/internal/render"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/validate"
	"goscreenwriter/internal/version"
)

type PaginateRequest struct {
	Elements     []domain.ScriptElement `json:"elements"`
	SceneNumbers bool                   `json:"sceneNumbers"`
	// AutoFix repairs the list before paginating instead of rejecting it.
	AutoFix bool `json:"autoFix"`
	// Placements adds per-element geometry to the response.
	Placements bool `json:"placements"`
}

type PaginateResponse struct {
	PageCount  int                         `json:"pageCount"`
	PageMap    map[string]int              `json:"pageMap"`
	Flags      map[string]pagination.Flags `json:"flags"`
	Placements []pagination.Placement      `json:"placements,omitempty"`
	// Elements is the annotated list: derived flags written back.
	Elements []domain.ScriptElement `json:"elements"`
}

type ViewportRequest struct {
	ScrollTop  float64 `json:"scrollTop"`
	Height     float64 `json:"height"`
	PageHeight float64 `json:"pageHeight"`
	Gap        float64 `json:"gap"`
}

type PreviewRequest struct {
	Elements     []domain.ScriptElement `json:"elements"`
	SceneNumbers bool                   `json:"sceneNumbers"`
	Watermark    string                 `json:"watermark"`
	Viewport     ViewportRequest        `json:"viewport"`
	Overscan     int                    `json:"overscan"`
	// Page selects the page for /api/preview/png.
	Page int `json:"page"`
	// Thumb asks /api/preview/png for a thumbnail.
	Thumb bool `json:"thumb"`
}

type PreviewPage struct {
	Number int          `json:"number"`
	Runs   []render.Run `json:"runs"`
}

type PreviewResponse struct {
	PageCount int           `json:"pageCount"`
	First     int           `json:"first"`
	Last      int           `json:"last"`
	Pages     []PreviewPage `json:"pages"`
}

type ExportRequest struct {
	Screenplay   domain.Screenplay `json:"screenplay"`
	SceneNumbers bool              `json:"sceneNumbers"`
	Watermark    string            `json:"watermark"`
	TitlePage    bool              `json:"titlePage"`
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": version.Version, "commit": version.Commit, "string": version.String()})
}

// prepare validates or repairs elements the way the request asks.
func prepare(els []domain.ScriptElement, fix bool) ([]domain.ScriptElement, error) {
	if fix {
		return validate.AutoFix(els), nil
	}
	if err := validate.Validate(els); err != nil {
		return nil, err
	}
	return els, nil
}

func abortInvalid(c *gin.Context, err error) {
	var problems []string
	for _, p := range validate.Problems(err) {
		problems = append(problems, p.Error())
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid script", "problems": problems})
}

func (s *Server) paginate(c *gin.Context) {
	var req PaginateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	els, err := prepare(req.Elements, req.AutoFix)
	if err != nil {
		abortInvalid(c, err)
		return
	}
	start := time.Now()
	res := pagination.New(pagination.Options{SceneNumbers: req.SceneNumbers}).Paginate(els)
	s.opts.Telemetry.Paginate(len(els), res.PageCount, time.Since(start))
	resp := PaginateResponse{
		PageCount: res.PageCount,
		PageMap:   res.PageMap,
		Flags:     res.Flags,
		Elements:  res.Annotate(els),
	}
	if req.Placements {
		resp.Placements = res.Placements
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) previewResult(c *gin.Context) (PreviewRequest, pagination.Result, bool) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return req, pagination.Result{}, false
	}
	els, err := prepare(req.Elements, true)
	if err != nil {
		abortInvalid(c, err)
		return req, pagination.Result{}, false
	}
	return req, pagination.New(pagination.Options{SceneNumbers: req.SceneNumbers}).Paginate(els), true
}

// preview returns the drawable runs of the pages visible in the viewport.
func (s *Server) preview(c *gin.Context) {
	req, res, ok := s.previewResult(c)
	if !ok {
		return
	}
	vp := preview.Viewport(req.Viewport)
	if vp.PageHeight <= 0 {
		vp.PageHeight = 1
		vp.Height = 1
	}
	w := preview.Visible(vp, res.PageCount, req.Overscan)
	opts := render.Options{SceneNumbers: req.SceneNumbers, Watermark: req.Watermark}
	resp := PreviewResponse{PageCount: res.PageCount, First: w.First, Last: w.Last, Pages: []PreviewPage{}}
	for _, n := range w.Pages() {
		resp.Pages = append(resp.Pages, PreviewPage{Number: n, Runs: render.Page(res.Page(n), n, opts)})
	}
	c.JSON(http.StatusOK, resp)
}

// previewPNG rasterizes one page.
func (s *Server) previewPNG(c *gin.Context) {
	req, res, ok := s.previewResult(c)
	if !ok {
		return
	}
	n := max(req.Page, 1)
	if n > res.PageCount {
		abortError(c, http.StatusNotFound, fmt.Errorf("page %d of %d", n, res.PageCount))
		return
	}
	r := preview.NewRenderer(s.opts.PreviewDPI, s.opts.FontPath)
	p := preview.NewPager(r, res, render.Options{SceneNumbers: req.SceneNumbers, Watermark: req.Watermark}, 0)
	kind := storage.PreviewKindPage
	if req.Thumb {
		kind = storage.PreviewKindThumb
	}
	b, err := p.PNG(c.Request.Context(), n, kind)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("X-Page-Count", strconv.Itoa(res.PageCount))
	c.Data(http.StatusOK, "image/png", b)
}

var contentTypes = map[string]string{
	"pdf":      "application/pdf",
	"fdx":      "application/xml; charset=utf-8",
	"fountain": "text/plain; charset=utf-8",
}

func (s *Server) export(c *gin.Context) {
	format := strings.ToLower(c.Param("format"))
	ctype, ok := contentTypes[format]
	if !ok {
		abortError(c, http.StatusNotFound, fmt.Errorf("unknown export format %q", format))
		return
	}
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	if err := validate.Validate(req.Screenplay.Elements); err != nil {
		abortInvalid(c, err)
		return
	}
	var buf bytes.Buffer
	start := time.Now()
	pages, err := s.encode(c, format, &buf, req)
	s.opts.Telemetry.Export(format, pages, time.Since(start), err)
	if err != nil {
		abortError(c, exportStatus(err), err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName(req.Screenplay, format)))
	c.Data(http.StatusOK, ctype, buf.Bytes())
}

func (s *Server) encode(c *gin.Context, format string, buf *bytes.Buffer, req ExportRequest) (int, error) {
	switch format {
	case "pdf":
		st, err := export.PDF(c.Request.Context(), buf, req.Screenplay, s.pdfOptions(req, nil))
		return st.Pages, err
	case "fdx":
		return 0, export.WriteFDX(buf, req.Screenplay, export.FDXOptions{SceneNumbers: req.SceneNumbers, TitlePage: req.TitlePage})
	case "fountain":
		return 0, export.WriteFountain(buf, req.Screenplay, export.FountainOptions{SceneNumbers: req.SceneNumbers, TitlePage: req.TitlePage})
	}
	return 0, errors.New("unreachable export format " + format)
}

func (s *Server) pdfOptions(req ExportRequest, progress func(int)) export.PDFOptions {
	opt := export.PDFOptions{
		Options:   render.Options{SceneNumbers: req.SceneNumbers, Watermark: req.Watermark, TitlePage: req.TitlePage},
		BatchSize: s.opts.BatchSize,
		Progress:  progress,
	}
	if tp := req.Screenplay.TitlePage; !tp.Empty() {
		opt.Title = tp.Title
		opt.Author = tp.Author
	}
	return opt
}

// fileName derives a download name from the title page.
func fileName(sp domain.Screenplay, ext string) string {
	name := "screenplay"
	if tp := sp.TitlePage; !tp.Empty() {
		if s := slug.Make(tp.Title); s != "" {
			name = s
		}
	}
	return name + "." + ext
}
