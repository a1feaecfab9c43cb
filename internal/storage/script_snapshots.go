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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goscreenwriter/internal/domain"
)

// language=SQL
// dialect=SQLite
const insertScriptSnapshotSQL = `INSERT INTO script_snapshots(ts, label, pages, body) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectScriptSnapshotSQL = `SELECT id, ts, label, pages, body FROM script_snapshots WHERE id = ?`

// language=SQL
// dialect=SQLite
const selectLatestScriptSnapshotSQL = `SELECT id, ts, label, pages, body FROM script_snapshots ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listScriptSnapshotsSQL = `SELECT id, ts, label, pages, body FROM script_snapshots ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldScriptSnapshotsSQL = `DELETE FROM script_snapshots WHERE id NOT IN (
	SELECT id FROM script_snapshots ORDER BY ts DESC, id DESC LIMIT ?
)`

// ScriptSnapshot is a stored copy of the screenplay. Pages is the page
// count at the time it was taken, 0 when unknown.
type ScriptSnapshot struct {
	ID         int64
	TS         time.Time
	Label      string
	Pages      int
	Screenplay domain.Screenplay
}

// SaveScriptSnapshot stores the project's current screenplay with a label.
// The index database is disposable; snapshots are a convenience history, not canonical storage.
func SaveScriptSnapshot(ctx context.Context, ph *ProjectHandle, label string, pages int, ts time.Time) (int64, error) {
	if ph == nil {
		return 0, errors.New("nil ProjectHandle")
	}
	body, err := json.Marshal(ph.Project.Screenplay)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, insertScriptSnapshotSQL, ts.UTC().Format(time.RFC3339Nano), label, pages, string(body))
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return res.LastInsertId()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r rowScanner) (ScriptSnapshot, error) {
	var s ScriptSnapshot
	var tsStr, body string
	if err := r.Scan(&s.ID, &tsStr, &s.Label, &s.Pages, &body); err != nil {
		return s, err
	}
	s.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
	if err := json.Unmarshal([]byte(body), &s.Screenplay); err != nil {
		return s, fmt.Errorf("decode snapshot %d: %w", s.ID, err)
	}
	return s, nil
}

// GetScriptSnapshot returns the snapshot with the given id.
func GetScriptSnapshot(ctx context.Context, ph *ProjectHandle, id int64) (ScriptSnapshot, error) {
	if ph == nil {
		return ScriptSnapshot{}, errors.New("nil ProjectHandle")
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return ScriptSnapshot{}, err
	}
	defer func() { _ = db.Close() }()
	s, err := scanSnapshot(db.QueryRowContext(ctx, selectScriptSnapshotSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("snapshot %d not found", id)
	}
	return s, err
}

// GetLatestScriptSnapshot returns the newest snapshot; ok is false when
// there is none.
func GetLatestScriptSnapshot(ctx context.Context, ph *ProjectHandle) (s ScriptSnapshot, ok bool, err error) {
	if ph == nil {
		return s, false, errors.New("nil ProjectHandle")
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return s, false, err
	}
	defer func() { _ = db.Close() }()
	s, err = scanSnapshot(db.QueryRowContext(ctx, selectLatestScriptSnapshotSQL))
	if errors.Is(err, sql.ErrNoRows) {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	return s, true, nil
}

// ListScriptSnapshots returns up to limit most recent snapshots.
func ListScriptSnapshots(ctx context.Context, ph *ProjectHandle, limit int) ([]ScriptSnapshot, error) {
	if ph == nil {
		return nil, errors.New("nil ProjectHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listScriptSnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []ScriptSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RestoreScriptSnapshot replaces the handle's screenplay with snapshot id
// and saves the project. The previous manifest lands in backups as usual.
func RestoreScriptSnapshot(ctx context.Context, ph *ProjectHandle, id int64) error {
	s, err := GetScriptSnapshot(ctx, ph, id)
	if err != nil {
		return err
	}
	ph.Project.Screenplay = s.Screenplay
	if err := Save(ph); err != nil {
		return err
	}
	return UpdateIndex(ctx, ph.Root, ph.Project)
}

// PruneOldScriptSnapshots keeps at most keepLast snapshots and deletes older ones.
func PruneOldScriptSnapshots(ctx context.Context, ph *ProjectHandle, keepLast int) (int64, error) {
	if ph == nil {
		return 0, errors.New("nil ProjectHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldScriptSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
