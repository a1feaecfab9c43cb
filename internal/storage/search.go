/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SearchQuery describes a search over the project index.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Speaker matches the speaking character exactly (case-insensitive), Scene
// matches a substring of the scene heading or its number. Types restricts to
// element type names (scene_heading, dialogue, ...) or metadata kinds.
// PageFrom/To are inclusive; 0 means unset.
type SearchQuery struct {
	Text     string
	Speaker  string
	Scene    string
	Types    []string
	PageFrom int
	PageTo   int
	Limit    int
	Offset   int
}

// SearchResult represents a single match row.
// Snippet is a highlighted excerpt using [ ] markers when FTS text is used.
// PageID is 0 when no page map has been stored yet.
type SearchResult struct {
	DocID     int64
	ElementID string
	Type      string
	Path      string
	Sequence  int
	Scene     string
	Speaker   string
	PageID    int
	Snippet   string
}

// Search performs full-text search with optional filters over the embedded index.
// When q.Text is empty, it falls back to a non-FTS scan over documents with filters applied.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

const resultColumns = "d.doc_id, COALESCE(d.element_id,''), d.type, d.path, COALESCE(d.sequence,0), COALESCE(d.scene,''), COALESCE(d.speaker,''), COALESCE(d.page_id,0)"

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT " + resultColumns + ", snippet(fts_documents, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT " + resultColumns + ", ''\n")
		sb.WriteString("FROM documents d\nWHERE 1=1\n")
	}
	if len(q.Types) > 0 {
		sb.WriteString(" AND d.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	if q.PageFrom > 0 && q.PageTo > 0 && q.PageTo >= q.PageFrom {
		sb.WriteString(" AND d.page_id BETWEEN ? AND ?\n")
		args = append(args, q.PageFrom, q.PageTo)
	} else if q.PageFrom > 0 {
		sb.WriteString(" AND d.page_id >= ?\n")
		args = append(args, q.PageFrom)
	} else if q.PageTo > 0 {
		sb.WriteString(" AND d.page_id <= ?\n")
		args = append(args, q.PageTo)
	}
	if s := strings.TrimSpace(q.Speaker); s != "" {
		sb.WriteString(" AND upper(d.speaker) = ?\n")
		args = append(args, strings.ToUpper(s))
	}
	if s := strings.TrimSpace(q.Scene); s != "" {
		sb.WriteString(" AND lower(d.scene) LIKE ?\n")
		args = append(args, likeContains(strings.ToLower(s)))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY d.sequence NULLS FIRST, d.doc_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.DocID, &r.ElementID, &r.Type, &r.Path, &r.Sequence, &r.Scene, &r.Speaker, &r.PageID, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Speakers lists the distinct speaking characters with their line counts,
// most frequent first.
func Speakers(ctx context.Context, projectRoot string) ([]SpeakerCount, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT speaker, COUNT(*) FROM documents
		WHERE speaker IS NOT NULL AND type = 'dialogue'
		GROUP BY speaker ORDER BY COUNT(*) DESC, speaker`)
	if err != nil {
		return nil, fmt.Errorf("speakers query: %w", err)
	}
	defer rows.Close()
	var out []SpeakerCount
	for rows.Next() {
		var sc SpeakerCount
		if err := rows.Scan(&sc.Name, &sc.Lines); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// SpeakerCount is one row of Speakers.
type SpeakerCount struct {
	Name  string
	Lines int
}

func likeContains(s string) string { return "%" + s + "%" }

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
