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
	"os"
	"strconv"
	"time"
)

// EnvPreviewsMaxBytes caps the preview cache size.
const EnvPreviewsMaxBytes = "GSW_PREVIEWS_MAX_BYTES"

// Preview kinds.
// - thumb: small PNG for page strips
// - page: full page raster at preview DPI
const (
	PreviewKindThumb = "thumb"
	PreviewKindPage  = "page"
)

// PreviewKey identifies one cached raster. Hash fingerprints the page
// content; a stored row with a different hash is stale and ignored.
type PreviewKey struct {
	Page int
	Kind string
	W, H int
	Hash string
}

func (k PreviewKey) validate() error {
	if k.Kind != PreviewKindThumb && k.Kind != PreviewKindPage {
		return fmt.Errorf("invalid kind: %s", k.Kind)
	}
	if k.Page < 1 {
		return fmt.Errorf("invalid page: %d", k.Page)
	}
	return nil
}

// GetPreview returns the cached blob for k and updates last_access. It
// returns nil when nothing or only a stale rendering is stored.
func GetPreview(ctx context.Context, projectRoot string, k PreviewKey) ([]byte, error) {
	if err := k.validate(); err != nil {
		return nil, err
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var blob []byte
	var hash string
	err = db.QueryRowContext(ctx, `SELECT blob, hash FROM previews WHERE page_id=? AND kind=? AND w=? AND h=?`, k.Page, k.Kind, k.W, k.H).Scan(&blob, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	if hash != k.Hash {
		return nil, nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, _ = db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE page_id=? AND kind=? AND w=? AND h=?`, now, k.Page, k.Kind, k.W, k.H)
	return blob, nil
}

// PutPreview upserts a preview blob and enforces the cache size cap via LRU eviction.
func PutPreview(ctx context.Context, projectRoot string, k PreviewKey, blob []byte) error {
	if err := k.validate(); err != nil {
		return err
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = db.ExecContext(ctx, `INSERT INTO previews(page_id,kind,w,h,hash,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?,?)
		ON CONFLICT(page_id,kind,w,h) DO UPDATE SET hash=excluded.hash, blob=excluded.blob, size=excluded.size,
			updated_at=excluded.updated_at, last_access=excluded.last_access`,
		k.Page, k.Kind, k.W, k.H, k.Hash, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if capBytes := MaxPreviewsBytesFromEnv(); capBytes > 0 {
		return EvictPreviewsToFit(ctx, db, capBytes)
	}
	return nil
}

// GetOrCreatePreview fetches a preview or generates and stores it using the provided generator.
func GetOrCreatePreview(ctx context.Context, projectRoot string, k PreviewKey, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := GetPreview(ctx, projectRoot, k); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	if err := PutPreview(ctx, projectRoot, k, data); err != nil {
		return nil, err
	}
	return data, nil
}

// PrunePreviews drops cached pages beyond pageCount, left over from a
// longer draft.
func PrunePreviews(ctx context.Context, projectRoot string, pageCount int) (int64, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	res, err := db.ExecContext(ctx, `DELETE FROM previews WHERE page_id > ?`, pageCount)
	if err != nil {
		return 0, fmt.Errorf("prune previews: %w", err)
	}
	return res.RowsAffected()
}

// EvictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func EvictPreviewsToFit(ctx context.Context, db *sql.DB, capBytes int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("sum previews size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	rows, err := db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the single connection must be free before the delete
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM previews WHERE id IN (`+placeholders(len(victims))+`)`, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalPreviewBytes returns total bytes tracked by previews.size
func TotalPreviewBytes(ctx context.Context, projectRoot string) (int64, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// MaxPreviewsBytesFromEnv reads GSW_PREVIEWS_MAX_BYTES, defaulting to 64MB if unset.
func MaxPreviewsBytesFromEnv() int64 {
	const def = 64 * 1024 * 1024
	v := os.Getenv(EnvPreviewsMaxBytes)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
