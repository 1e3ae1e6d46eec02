package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetCachedTree returns the payload stored under key if it is younger than
// ttl at now. A ttl of zero or less never expires.
func (d *DB) GetCachedTree(key string, ttl time.Duration, now time.Time) ([]byte, bool, error) {
	var payload []byte
	var createdAt int64
	err := d.db.QueryRow(`
		SELECT payload, created_at FROM tree_cache WHERE cache_key = ?
	`, key).Scan(&payload, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading tree cache: %w", err)
	}
	if ttl > 0 && now.Sub(time.Unix(createdAt, 0)) >= ttl {
		return nil, false, nil
	}
	return payload, true, nil
}

// PutCachedTree stores payload under key, replacing any previous entry.
func (d *DB) PutCachedTree(key string, payload []byte, now time.Time) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO tree_cache (cache_key, payload, created_at)
		VALUES (?, ?, ?)
	`, key, payload, now.Unix())
	if err != nil {
		return fmt.Errorf("writing tree cache: %w", err)
	}
	return nil
}

// PurgeCachedTrees deletes entries created before cutoff and returns how
// many were removed.
func (d *DB) PurgeCachedTrees(cutoff time.Time) (int64, error) {
	res, err := d.db.Exec(`DELETE FROM tree_cache WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purging tree cache: %w", err)
	}
	return res.RowsAffected()
}

// CountCachedTrees returns the number of cached trees.
func (d *DB) CountCachedTrees() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM tree_cache").Scan(&count)
	return count, err
}
