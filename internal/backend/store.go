/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"goscreenwriter/internal/domain"
	"goscreenwriter/internal/pagination"
)

var ErrNotFound = errors.New("backend: project not found")

// ProjectInfo is a listing row.
type ProjectInfo struct {
	ID        int64     `json:"id"`
	StableID  string    `json:"stable_id"`
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	PageCount int       `json:"page_count,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveScript replaces the element list of the project keyed by stableID,
// creating the project when needed, and returns the new version.
func (s *Store) SaveScript(ctx context.Context, stableID, name string, sp domain.Screenplay) (int64, error) {
	stableID = strings.TrimSpace(stableID)
	if stableID == "" {
		return 0, errors.New("backend: stable id is required")
	}
	var titlePage []byte
	if !sp.TitlePage.Empty() {
		b, err := json.Marshal(sp.TitlePage)
		if err != nil {
			return 0, fmt.Errorf("encode title page: %w", err)
		}
		titlePage = b
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		pid     int64
		version int64
	)
	err = tx.QueryRowContext(ctx, `INSERT INTO projects(stable_id, name, title_page, version, updated_at)
		VALUES($1, $2, $3, 1, now())
		ON CONFLICT (stable_id) DO UPDATE SET name = EXCLUDED.name, title_page = EXCLUDED.title_page,
			version = projects.version + 1, page_count = NULL, updated_at = now()
		RETURNING id, version`, stableID, name, nullJSON(titlePage)).Scan(&pid, &version)
	if err != nil {
		return 0, fmt.Errorf("upsert project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM script_elements WHERE project_id = $1`, pid); err != nil {
		return 0, fmt.Errorf("clear elements: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO script_elements(project_id, seq, element_id, type, content, character, dual, is_continued, scene_number, scene, speaker)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	scene := ""
	for i, el := range sp.Elements {
		if el.Type == domain.SceneHeading {
			scene = strings.TrimSpace(el.Content)
			if n := strings.TrimSpace(el.SceneNumber); n != "" {
				scene = n + " " + scene
			}
		}
		if _, err := stmt.ExecContext(ctx, pid, i+1, el.ID, el.Type.String(), el.Content,
			nullStr(el.Character), nullStr(el.Dual.String()), el.IsContinued, nullStr(el.SceneNumber),
			nullStr(scene), nullStr(el.Speaker())); err != nil {
			return 0, fmt.Errorf("insert element %s: %w", el.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

// LoadScript returns the stored screenplay of stableID. Derived flags
// written by SavePageMap come back on the elements.
func (s *Store) LoadScript(ctx context.Context, stableID string) (domain.Screenplay, ProjectInfo, error) {
	var (
		info ProjectInfo
		tp   []byte
		pc   sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, stable_id, name, version, page_count, updated_at, title_page FROM projects WHERE stable_id = $1`, stableID).
		Scan(&info.ID, &info.StableID, &info.Name, &info.Version, &pc, &info.UpdatedAt, &tp)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Screenplay{}, ProjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, stableID)
	}
	if err != nil {
		return domain.Screenplay{}, ProjectInfo{}, fmt.Errorf("select project: %w", err)
	}
	info.PageCount = int(pc.Int64)
	var sp domain.Screenplay
	if len(tp) > 0 {
		sp.TitlePage = &domain.TitlePage{}
		if err := json.Unmarshal(tp, sp.TitlePage); err != nil {
			return domain.Screenplay{}, ProjectInfo{}, fmt.Errorf("decode title page: %w", err)
		}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT seq, element_id, type, content, COALESCE(character,''), COALESCE(dual,''),
		is_continued, continues_next, kept_together, COALESCE(scene_number,'')
		FROM script_elements WHERE project_id = $1 ORDER BY seq`, info.ID)
	if err != nil {
		return domain.Screenplay{}, ProjectInfo{}, fmt.Errorf("select elements: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			el        domain.ScriptElement
			typ, dual string
		)
		if err := rows.Scan(&el.Sequence, &el.ID, &typ, &el.Content, &el.Character, &dual,
			&el.IsContinued, &el.ContinuesNext, &el.KeptTogether, &el.SceneNumber); err != nil {
			return domain.Screenplay{}, ProjectInfo{}, fmt.Errorf("scan element: %w", err)
		}
		if el.Type, err = domain.ParseElementType(typ); err != nil {
			return domain.Screenplay{}, ProjectInfo{}, fmt.Errorf("element %s: %w", el.ID, err)
		}
		if el.Dual, err = domain.ParseDualSide(dual); err != nil {
			return domain.Screenplay{}, ProjectInfo{}, fmt.Errorf("element %s: %w", el.ID, err)
		}
		sp.Elements = append(sp.Elements, el)
	}
	if err := rows.Err(); err != nil {
		return domain.Screenplay{}, ProjectInfo{}, err
	}
	if sp.Elements == nil {
		sp.Elements = []domain.ScriptElement{}
	}
	return sp, info, nil
}

// ListProjects returns all projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, stable_id, name, version, page_count, updated_at FROM projects ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var list []ProjectInfo
	for rows.Next() {
		var (
			p  ProjectInfo
			pc sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.StableID, &p.Name, &p.Version, &pc, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.PageCount = int(pc.Int64)
		list = append(list, p)
	}
	return list, rows.Err()
}

// DeleteProject removes a project and its elements.
func (s *Store) DeleteProject(ctx context.Context, stableID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE stable_id = $1`, stableID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, stableID)
	}
	return nil
}

// SavePageMap stores the derived page numbers and flags of a pass next to
// the elements. Elements missing from the result get their page cleared.
func (s *Store) SavePageMap(ctx context.Context, stableID string, res pagination.Result) error {
	ids := make([]string, 0, len(res.PageMap))
	pages := make([]int32, 0, len(res.PageMap))
	cont := make([]bool, 0, len(res.PageMap))
	kept := make([]bool, 0, len(res.PageMap))
	for id, pg := range res.PageMap {
		f := res.Flags[id]
		ids = append(ids, id)
		pages = append(pages, int32(pg))
		cont = append(cont, f.ContinuesNext)
		kept = append(kept, f.KeptTogether)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	var pid int64
	err = tx.QueryRowContext(ctx, `UPDATE projects SET page_count = $2 WHERE stable_id = $1 RETURNING id`, stableID, res.PageCount).Scan(&pid)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, stableID)
	}
	if err != nil {
		return fmt.Errorf("update page count: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE script_elements SET page = NULL, continues_next = false, kept_together = false WHERE project_id = $1`, pid); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE script_elements e SET page = m.page, continues_next = m.cont, kept_together = m.kept
		FROM unnest($2::text[], $3::int[], $4::bool[], $5::bool[]) AS m(element_id, page, cont, kept)
		WHERE e.project_id = $1 AND e.element_id = m.element_id`, pid, ids, pages, cont, kept); err != nil {
		return fmt.Errorf("store pages: %w", err)
	}
	return tx.Commit()
}

// PageMap returns element id to page for a project.
func (s *Store) PageMap(ctx context.Context, stableID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT e.element_id, e.page FROM script_elements e
		JOIN projects p ON p.id = e.project_id WHERE p.stable_id = $1 AND e.page IS NOT NULL`, stableID)
	if err != nil {
		return nil, fmt.Errorf("select pages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := map[string]int{}
	for rows.Next() {
		var (
			id string
			pg int
		)
		if err := rows.Scan(&id, &pg); err != nil {
			return nil, err
		}
		out[id] = pg
	}
	return out, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
