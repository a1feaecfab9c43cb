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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/script"
	"goscreenwriter/internal/server"
	"goscreenwriter/internal/storage"
	"goscreenwriter/internal/validate"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Creates a new screenplay project",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "project `NAME`, defaults to the directory name"},
			&cli.StringFlag{Name: "title", Usage: "title page `TITLE`"},
			&cli.StringFlag{Name: "author", Usage: "title page `AUTHOR`"},
		},
		OnUsageError: usageErrorHandler,
		Action:       runInit,
	}
}

func runInit(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	dir := cmd.Args().First()
	if dir == "" {
		return errors.New("init: project directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	name := cmd.String("name")
	if name == "" {
		name = filepath.Base(abs)
	}
	proj := domain.Project{Name: name, Screenplay: domain.Screenplay{Elements: []domain.ScriptElement{}}}
	if title, author := cmd.String("title"), cmd.String("author"); title != "" || author != "" {
		proj.Screenplay.TitlePage = &domain.TitlePage{Title: title, Credit: "written by", Author: author}
	}
	ph, err := storage.InitProject(abs, proj)
	if err != nil {
		return fmt.Errorf("init project: %w", err)
	}
	env.setProject(ph)
	env.log.Info("project created", "root", abs, "name", name)
	fmt.Fprintln(stdout(cmd), "Created project at", abs)
	return nil
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Replaces the project's screenplay with a Fountain or Final Draft file",
		ArgsUsage: "DIR SOURCE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "source `FORMAT` (fountain, fdx); guessed from the extension when empty"},
			&cli.BoolFlag{Name: "number-scenes", Usage: "give unnumbered scene headings their ordinal"},
		},
		OnUsageError: usageErrorHandler,
		Action:       runImport,
	}
}

// importFormat resolves the source format from the flag or the file name.
func importFormat(flag, path string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(flag))
	if f == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".fdx":
			f = "fdx"
		case ".fountain", ".spmd", ".txt":
			f = "fountain"
		default:
			return "", fmt.Errorf("cannot tell the format of %s, use --format", filepath.Base(path))
		}
	}
	if f != "fountain" && f != "fdx" {
		return "", fmt.Errorf("unsupported import format %q", f)
	}
	return f, nil
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	src := cmd.Args().Get(1)
	if src == "" {
		return errors.New("import: source file is required")
	}
	format, err := importFormat(cmd.String("format"), src)
	if err != nil {
		return err
	}
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}

	var doc script.Document
	switch format {
	case "fdx":
		f, err := os.Open(src)
		if err != nil {
			return err
		}
		doc, err = script.ParseFDX(f)
		_ = f.Close()
		if err != nil {
			return err
		}
	default:
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		var problems []script.Error
		doc, problems = script.ParseFountain(string(data))
		for _, p := range problems {
			env.log.Warn("fountain import", "file", src, "line", p.Line, "col", p.Column, "msg", p.Message)
		}
	}

	if len(ph.Elements()) > 0 {
		// keep what is replaced
		if _, err := storage.SaveScriptSnapshot(ctx, ph, "before import of "+filepath.Base(src), 0, time.Now()); err != nil {
			env.log.Warn("snapshot before import failed", "err", err)
		}
	}
	sp := doc.Screenplay()
	if cmd.Bool("number-scenes") {
		sp.Elements = script.NumberScenes(sp.Elements)
	}
	if sp.TitlePage == nil {
		sp.TitlePage = ph.Project.Screenplay.TitlePage
	}
	ph.Project.Screenplay = sp
	if err := storage.Save(ph); err != nil {
		return err
	}
	if err := storage.UpdateIndex(ctx, ph.Root, ph.Project); err != nil {
		return err
	}
	scenes := len(script.Scenes(sp.Elements, nil))
	env.log.Info("script imported", "source", src, "format", format, "elements", len(sp.Elements), "scenes", scenes)
	fmt.Fprintf(stdout(cmd), "Imported %d elements in %d scenes from %s\n", len(sp.Elements), scenes, filepath.Base(src))
	return nil
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Checks the element list and optionally repairs it",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "fix", Usage: "renumber, clear derived flags, unpair broken dual blocks and save"},
		},
		OnUsageError: usageErrorHandler,
		Action:       runValidate,
	}
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}
	out := stdout(cmd)
	verr := validate.Validate(ph.Elements())
	if verr == nil {
		fmt.Fprintln(out, "ok")
		return nil
	}
	problems := validate.Problems(verr)
	for _, p := range problems {
		fmt.Fprintln(out, p.Error())
	}
	if !cmd.Bool("fix") {
		return fmt.Errorf("%d problems found", len(problems))
	}
	fixed := validate.AutoFix(ph.Elements())
	if err := validate.Validate(fixed); err != nil {
		return fmt.Errorf("auto-fix left problems: %w", err)
	}
	ph.Project.Screenplay.Elements = fixed
	if err := storage.Save(ph); err != nil {
		return err
	}
	if err := storage.UpdateIndex(ctx, ph.Root, ph.Project); err != nil {
		return err
	}
	fmt.Fprintf(out, "fixed %d problems\n", len(problems))
	return nil
}

func paginateCommand() *cli.Command {
	return &cli.Command{
		Name:      "paginate",
		Usage:     "Paginates the screenplay and stores the page map in the project index",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "scene-numbers", Usage: "lay out scene numbers in the margins"},
			&cli.StringFlag{Name: "server", Usage: "paginate on the service at `URL` instead of locally"},
			&cli.BoolFlag{Name: "json", Usage: "print the page map as JSON"},
		},
		OnUsageError: usageErrorHandler,
		Action:       runPaginate,
	}
}

func runPaginate(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}
	els := ph.Elements()
	if err := validate.Validate(els); err != nil {
		for _, p := range validate.Problems(err) {
			fmt.Fprintln(stderr(cmd), p.Error())
		}
		return errors.New("script is not valid, run validate --fix")
	}
	sceneNumbers := env.cfg.Render.SceneNumbers
	if cmd.IsSet("scene-numbers") {
		sceneNumbers = cmd.Bool("scene-numbers")
	}

	var res pagination.Result
	start := time.Now()
	if url := cmd.String("server"); url != "" {
		resp, err := server.NewClient(url).Paginate(ctx, server.PaginateRequest{Elements: els, SceneNumbers: sceneNumbers, Placements: true})
		if err != nil {
			return fmt.Errorf("remote paginate: %w", err)
		}
		res = pagination.Result{PageMap: resp.PageMap, Flags: resp.Flags, Placements: resp.Placements, PageCount: resp.PageCount}
	} else {
		res = pagination.New(pagination.Options{SceneNumbers: sceneNumbers}).Paginate(els)
		env.tel.Paginate(len(els), res.PageCount, time.Since(start))
	}
	env.log.Info("paginated", "elements", len(els), "pages", res.PageCount, "took", time.Since(start))

	if err := storage.BuildIndexIfEmpty(ctx, ph.Root, ph.Project); err != nil {
		return err
	}
	if err := storage.SavePageMap(ctx, ph.Root, res); err != nil {
		return err
	}

	out := stdout(cmd)
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			PageCount int                         `json:"pageCount"`
			PageMap   map[string]int              `json:"pageMap"`
			Flags     map[string]pagination.Flags `json:"flags"`
		}{res.PageCount, res.PageMap, res.Flags})
	}
	fmt.Fprintf(out, "%d elements on %d pages\n", len(els), res.PageCount)
	return nil
}

func scenesCommand() *cli.Command {
	return &cli.Command{
		Name:      "scenes",
		Usage:     "Lists scene headings with their pages from the last pagination",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "by-number", Usage: "order by scene number instead of script order"},
		},
		OnUsageError: usageErrorHandler,
		Action:       runScenes,
	}
}

func runScenes(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}
	entries, err := storage.LoadPageMap(ctx, ph.Root)
	if err != nil {
		return err
	}
	scenes := script.Scenes(ph.Elements(), storage.Pages(entries))
	if cmd.Bool("by-number") {
		script.SortByNumber(scenes)
	}
	tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENE\tPAGE\tHEADING")
	for _, s := range scenes {
		page := "-"
		if s.Page > 0 {
			page = fmt.Sprint(s.Page)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Number, page, s.Heading)
	}
	return tw.Flush()
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Searches the project index",
		ArgsUsage: "DIR [TEXT...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "speaker", Usage: "only speech of `NAME`"},
			&cli.StringFlag{Name: "scene", Usage: "only scenes whose heading or number contains `TEXT`"},
			&cli.StringSliceFlag{Name: "type", Usage: "only element `TYPE` (scene_heading, dialogue, ...)"},
			&cli.IntFlag{Name: "from", Usage: "first `PAGE`"},
			&cli.IntFlag{Name: "to", Usage: "last `PAGE`"},
			&cli.IntFlag{Name: "limit", Value: 50, Usage: "at most `N` results"},
		},
		OnUsageError: usageErrorHandler,
		Action:       runSearch,
	}
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	ph, err := env.openProject(cmd)
	if err != nil {
		return err
	}
	if rebuilt, err := storage.DetectAndRebuildIndex(ctx, ph.Root, ph.Project); err != nil {
		return err
	} else if rebuilt {
		env.log.Warn("project index was damaged and has been rebuilt", "root", ph.Root)
	}
	if err := storage.BuildIndexIfEmpty(ctx, ph.Root, ph.Project); err != nil {
		return err
	}
	q := storage.SearchQuery{
		Text:     strings.Join(cmd.Args().Tail(), " "),
		Speaker:  cmd.String("speaker"),
		Scene:    cmd.String("scene"),
		Types:    cmd.StringSlice("type"),
		PageFrom: int(cmd.Int("from")),
		PageTo:   int(cmd.Int("to")),
		Limit:    int(cmd.Int("limit")),
	}
	results, err := storage.Search(ctx, ph.Root, q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tTYPE\tSCENE\tTEXT")
	for _, r := range results {
		page := "-"
		if r.PageID > 0 {
			page = fmt.Sprint(r.PageID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", page, r.Type, r.Scene, oneLine(r.Snippet))
	}
	return tw.Flush()
}

func speakersCommand() *cli.Command {
	return &cli.Command{
		Name:         "speakers",
		Usage:        "Counts dialogue lines per character",
		ArgsUsage:    "DIR",
		OnUsageError: usageErrorHandler,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env := envFromContext(ctx)
			ph, err := env.openProject(cmd)
			if err != nil {
				return err
			}
			if err := storage.BuildIndexIfEmpty(ctx, ph.Root, ph.Project); err != nil {
				return err
			}
			counts, err := storage.Speakers(ctx, ph.Root)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHARACTER\tLINES")
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Lines)
			}
			return tw.Flush()
		},
	}
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 80 {
		return string(r[:79]) + "…"
	}
	return s
}
