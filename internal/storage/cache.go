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
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// ThumbCache stores rendered composite thumbnails per project, keyed by
// document content hash and target dimensions. It is a derived cache: losing
// it only costs re-rendering. Total size is capped with LRU eviction.
type ThumbCache struct {
	db *sql.DB
}

const thumbDBFileName = "thumbs.db"

// OpenThumbCache opens (creating if needed) the thumbnail cache of a project.
func OpenThumbCache(ctx context.Context, projectRoot string) (*ThumbCache, error) {
	dir := filepath.Join(projectRoot, CacheDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(filepath.Join(dir, thumbDBFileName)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open thumb cache: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS thumbs (
		id          INTEGER PRIMARY KEY,
		doc_hash    TEXT    NOT NULL,
		w           INTEGER NOT NULL,
		h           INTEGER NOT NULL,
		blob        BLOB    NOT NULL,
		size        INTEGER NOT NULL,
		updated_at  TEXT    NOT NULL,
		last_access TEXT
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure thumbs table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS ux_thumbs_key ON thumbs(doc_hash, w, h)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create thumbs index: %w", err)
	}
	_, _ = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access)`)
	return &ThumbCache{db: db}, nil
}

// Close releases the underlying database.
func (c *ThumbCache) Close() error { return c.db.Close() }

// Get returns the cached thumbnail for a document hash and size, or nil when
// absent, and touches its access time.
func (c *ThumbCache) Get(ctx context.Context, docHash string, w, h int) ([]byte, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT blob FROM thumbs WHERE doc_hash=? AND w=? AND h=?`, docHash, w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumb: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, _ = c.db.ExecContext(ctx, `UPDATE thumbs SET last_access=? WHERE doc_hash=? AND w=? AND h=?`, now, docHash, w, h)
	return blob, nil
}

// Put upserts a thumbnail blob and enforces the size cap via LRU eviction.
func (c *ThumbCache) Put(ctx context.Context, docHash string, w, h int, blob []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := c.db.ExecContext(ctx, `INSERT INTO thumbs(doc_hash,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(doc_hash,w,h) DO UPDATE SET blob=excluded.blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		docHash, w, h, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert thumb: %w", err)
	}
	if capBytes := MaxThumbBytesFromEnv(); capBytes > 0 {
		return c.evictToFit(ctx, capBytes)
	}
	return nil
}

// GetOrCreate fetches a thumbnail or generates and stores it.
func (c *ThumbCache) GetOrCreate(ctx context.Context, docHash string, w, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := c.Get(ctx, docHash, w, h); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if err := c.Put(ctx, docHash, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// TotalBytes returns the tracked cache size.
func (c *ThumbCache) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbs`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// evictToFit deletes least-recently-used rows until total size <= capBytes.
func (c *ThumbCache) evictToFit(ctx context.Context, capBytes int64) error {
	total, err := c.TotalBytes(ctx)
	if err != nil {
		return fmt.Errorf("sum thumbs size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT id, size FROM thumbs ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var toDelete []int64
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Close the cursor before writing.
	if err := rows.Close(); err != nil {
		return err
	}
	for _, id := range toDelete {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM thumbs WHERE id=?`, id); err != nil {
			return fmt.Errorf("evict delete: %w", err)
		}
	}
	return nil
}

// MaxThumbBytesFromEnv reads WS_THUMBS_MAX_BYTES, defaulting to 64MB.
func MaxThumbBytesFromEnv() int64 {
	v := os.Getenv("WS_THUMBS_MAX_BYTES")
	if v == "" {
		return 64 * 1024 * 1024
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 64 * 1024 * 1024
	}
	return n
}
