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
	"fmt"
	"strings"

	"goscreenwriter/internal/storage"
)

// SearchPG runs a storage.SearchQuery against the stored elements of a
// project using tsvector matching. Results use the same shape as the SQLite
// index so both stores can be compared; DocID is the element row id.
func (s *Store) SearchPG(ctx context.Context, stableID string, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	const cols = "e.id, e.element_id, e.type, 'element:' || e.element_id, e.seq, COALESCE(e.scene,''), COALESCE(e.speaker,''), COALESCE(e.page,0)"
	if text := strings.TrimSpace(q.Text); text != "" {
		tsq := "plainto_tsquery('simple', " + place(text) + ")"
		b.WriteString("SELECT " + cols + ", ")
		b.WriteString("COALESCE(ts_headline('simple', e.content, " + tsq + ", 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM script_elements e JOIN projects p ON p.id = e.project_id ")
		b.WriteString("WHERE e.search_vector @@ " + tsq + " ")
	} else {
		b.WriteString("SELECT " + cols + ", '' ")
		b.WriteString("FROM script_elements e JOIN projects p ON p.id = e.project_id WHERE true ")
	}
	b.WriteString(" AND p.stable_id = " + place(stableID) + " ")
	if len(q.Types) > 0 {
		b.WriteString(" AND e.type = ANY (" + place(q.Types) + ") ")
	}
	if q.PageFrom > 0 && q.PageTo > 0 && q.PageTo >= q.PageFrom {
		b.WriteString(" AND e.page BETWEEN " + place(q.PageFrom) + " AND " + place(q.PageTo) + " ")
	} else if q.PageFrom > 0 {
		b.WriteString(" AND e.page >= " + place(q.PageFrom) + " ")
	} else if q.PageTo > 0 {
		b.WriteString(" AND e.page <= " + place(q.PageTo) + " ")
	}
	if sp := strings.TrimSpace(q.Speaker); sp != "" {
		b.WriteString(" AND upper(e.speaker) = " + place(strings.ToUpper(sp)) + " ")
	}
	if sc := strings.TrimSpace(q.Scene); sc != "" {
		b.WriteString(" AND lower(COALESCE(e.scene,'')) LIKE " + place("%"+strings.ToLower(sc)+"%") + " ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(q.Offset, 0)
	b.WriteString(" ORDER BY e.seq, e.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.DocID, &r.ElementID, &r.Type, &r.Path, &r.Sequence, &r.Scene, &r.Speaker, &r.PageID, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
