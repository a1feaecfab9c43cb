/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"

	"goscreenwriter/internal/export"
	"goscreenwriter/internal/render"
	"goscreenwriter/internal/server"
	"goscreenwriter/internal/storage"
)

func renderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "scene-numbers", Usage: "print scene numbers in both margins"},
		&cli.StringFlag{Name: "watermark", Usage: "draw `TEXT` diagonally across every page"},
		&cli.BoolFlag{Name: "no-title-page", Usage: "leave out the title page"},
	}
}

// renderOptions applies the command flags over the configured defaults.
func renderOptions(env *appEnv, cmd *cli.Command) render.Options {
	ro := render.Options{
		SceneNumbers: env.cfg.Render.SceneNumbers,
		Watermark:    env.cfg.Render.Watermark,
		TitlePage:    env.cfg.Render.TitlePage,
	}
	if cmd.IsSet("scene-numbers") {
		ro.SceneNumbers = cmd.Bool("scene-numbers")
	}
	if cmd.IsSet("watermark") {
		ro.Watermark = cmd.String("watermark")
	}
	if cmd.Bool("no-title-page") {
		ro.TitlePage = false
	}
	return ro
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Exports the screenplay as PDF, Final Draft, Fountain or page images",
		ArgsUsage: "DIR",
		Flags: append(renderFlags(),
			&cli.StringFlag{Name: "to", Value: "pdf", Usage: "output `FORMAT` (pdf, fdx, fountain, png)"},
			&cli.StringFlag{Name: "out", Usage: "output `PATH`, relative paths land in the project's exports folder"},
			&cli.StringFlag{Name: "pages", Usage: "png only: page `LIST` such as 1,3-5"},
			&cli.IntFlag{Name: "dpi", Value: 150, Usage: "png only: resolution in `DPI`"},
			&cli.StringFlag{Name: "server", Usage: "render on the service at `URL` instead of locally (pdf, fdx, fountain)"},
		),
		OnUsageError: usageErrorHandler,
		Action:       runExport,
	}
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}
	format := strings.ToLower(cmd.String("to"))
	ro := renderOptions(env, cmd)
	out := cmd.String("out")
	if url := cmd.String("server"); url != "" {
		return exportRemote(ctx, cmd, ph, url, format, ro, out)
	}

	start := time.Now()
	var paths []string
	switch format {
	case "pdf":
		bar := newProgressBar(stderr(cmd), "pdf")
		path, st, err := export.ExportPDF(ctx, ph, out, export.PDFOptions{
			Options:   ro,
			BatchSize: env.cfg.Render.BatchSize,
			Progress:  bar.Update,
		})
		bar.Done()
		env.tel.Export(format, st.Pages, time.Since(start), err)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	case "fdx":
		path, err := export.ExportFDX(ph, out, export.FDXOptions{SceneNumbers: ro.SceneNumbers, TitlePage: ro.TitlePage})
		env.tel.Export(format, 0, time.Since(start), err)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	case "fountain":
		path, err := export.ExportFountain(ph, out, export.FountainOptions{SceneNumbers: ro.SceneNumbers, TitlePage: ro.TitlePage})
		env.tel.Export(format, 0, time.Since(start), err)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	case "png":
		pages, err := parsePages(cmd.String("pages"))
		if err != nil {
			return err
		}
		if out == "" {
			out = "png"
		}
		paths, err = export.ExportPNGPages(ctx, ph, out, export.PNGOptions{
			Options:  ro,
			DPI:      float64(cmd.Int("dpi")),
			FontPath: env.cfg.Render.FontPath,
			Pages:    pages,
		})
		env.tel.Export(format, len(paths), time.Since(start), err)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	env.log.Info("export done", "format", format, "files", len(paths), "took", time.Since(start))
	for _, p := range paths {
		fmt.Fprintln(stdout(cmd), p)
	}
	return nil
}

// exportRemote renders on a running service and writes the result the
// way a local export would name it.
func exportRemote(ctx context.Context, cmd *cli.Command, ph *storage.ProjectHandle, url, format string, ro render.Options, out string) error {
	c := server.NewClient(url)
	req := server.ExportRequest{Screenplay: ph.Project.Screenplay, SceneNumbers: ro.SceneNumbers, Watermark: ro.Watermark, TitlePage: ro.TitlePage}
	var (
		data []byte
		err  error
	)
	switch format {
	case "pdf":
		bar := newProgressBar(stderr(cmd), "pdf")
		data, _, err = c.ExportPDFStream(ctx, req, bar.Update)
		bar.Done()
	case "fdx", "fountain":
		data, err = c.Export(ctx, format, req)
	default:
		return fmt.Errorf("format %q is not served remotely", format)
	}
	if err != nil {
		return fmt.Errorf("remote export: %w", err)
	}
	if out == "" {
		out = export.FileName(ph, "."+format)
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(ph.ExportsDir(), out)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(out, data); err != nil {
		return err
	}
	fmt.Fprintln(stdout(cmd), out)
	return nil
}

func batchCommand() *cli.Command {
	names := make([]string, 0, len(export.Presets()))
	for _, p := range export.Presets() {
		names = append(names, string(p))
	}
	return &cli.Command{
		Name:      "batch",
		Usage:     "Runs every export of a preset",
		ArgsUsage: "DIR",
		Flags: append(renderFlags(),
			&cli.StringFlag{Name: "preset", Value: string(export.PresetDraft), Usage: "`PRESET` (" + strings.Join(names, ", ") + ")"},
			&cli.StringSliceFlag{Name: "formats", Usage: "override the preset `FORMATS`"},
			&cli.StringFlag{Name: "out", Usage: "output `DIR`, defaults to exports/<preset>"},
		),
		OnUsageError: usageErrorHandler,
		Action:       runBatch,
	}
}

func runBatch(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	preset, err := export.ParsePreset(cmd.String("preset"))
	if err != nil {
		return err
	}
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}
	opt := export.BatchOptions{
		Preset:    preset,
		Formats:   cmd.StringSlice("formats"),
		OutDir:    cmd.String("out"),
		BatchSize: env.cfg.Render.BatchSize,
		DPI:       float64(env.cfg.Render.PreviewDPI),
		FontPath:  env.cfg.Render.FontPath,
	}
	if cmd.IsSet("scene-numbers") {
		v := cmd.Bool("scene-numbers")
		opt.SceneNumbers = &v
	}
	if cmd.IsSet("watermark") {
		v := cmd.String("watermark")
		opt.Watermark = &v
	}
	bar := newProgressBar(stderr(cmd), string(preset))
	opt.Progress = bar.Update
	start := time.Now()
	paths, err := export.BatchExport(ctx, ph, opt)
	bar.Done()
	env.tel.Export("batch:"+string(preset), 0, time.Since(start), err)
	for _, p := range paths {
		fmt.Fprintln(stdout(cmd), p)
	}
	return err
}

// parsePages reads a page list such as "1,3-5". Empty means all pages.
func parsePages(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || a < 1 {
			return nil, fmt.Errorf("bad page %q", part)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || b < a {
				return nil, fmt.Errorf("bad page range %q", part)
			}
		}
		for n := a; n <= b; n++ {
			out = append(out, n)
		}
	}
	return out, nil
}
