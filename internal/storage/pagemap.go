/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"fmt"
	"time"

	"goscreenwriter/internal/pagination"
)

// language=SQL
// dialect=SQLite
const upsertPageMapSQL = `INSERT INTO page_map(element_id, page, line, continues_next, kept_together, is_continued, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const syncDocumentPagesSQL = `UPDATE documents SET page_id = (
	SELECT page FROM page_map WHERE page_map.element_id = documents.element_id
) WHERE element_id IS NOT NULL`

// PageEntry is one stored row of the last page map.
type PageEntry struct {
	ElementID     string
	Page          int
	Line          int
	ContinuesNext bool
	KeptTogether  bool
	IsContinued   bool
}

// SavePageMap replaces the stored page map with the output of a pass and
// updates the page of every indexed element.
func SavePageMap(ctx context.Context, projectRoot string, res pagination.Result) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM page_map`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear page map: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, upsertPageMapSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare page map insert: %w", err)
	}
	defer ins.Close()
	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range res.Placements {
		if p.ID == "" {
			continue
		}
		f := res.Flags[p.ID]
		if _, err := ins.ExecContext(ctx, p.ID, p.Page, p.Line, f.ContinuesNext, f.KeptTogether, f.IsContinued, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert page map row: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, syncDocumentPagesSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("attach pages: %w", err)
	}
	return tx.Commit()
}

// LoadPageMap returns the stored page map as element id -> entry.
func LoadPageMap(ctx context.Context, projectRoot string) (map[string]PageEntry, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT element_id, page, line, continues_next, kept_together, is_continued FROM page_map`)
	if err != nil {
		return nil, fmt.Errorf("query page map: %w", err)
	}
	defer rows.Close()
	out := map[string]PageEntry{}
	for rows.Next() {
		var e PageEntry
		if err := rows.Scan(&e.ElementID, &e.Page, &e.Line, &e.ContinuesNext, &e.KeptTogether, &e.IsContinued); err != nil {
			return nil, fmt.Errorf("scan page map: %w", err)
		}
		out[e.ElementID] = e
	}
	return out, rows.Err()
}

// Pages reduces a loaded page map to element id -> page.
func Pages(m map[string]PageEntry) map[string]int {
	out := make(map[string]int, len(m))
	for id, e := range m {
		out[id] = e.Page
	}
	return out
}
