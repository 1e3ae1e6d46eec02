package storage

import (
	"database/sql"
	"fmt"

	"github.com/matsen/searchforest/internal/citation"
)

// GetReferences returns the outgoing references of id in recorded order.
func (d *DB) GetReferences(id string) ([]string, error) {
	rows, err := d.db.Query(`
		SELECT target_id FROM citations
		WHERE source_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying references of %s: %w", id, err)
	}
	return scanIDs(rows)
}

// GetCitedBy returns the papers citing id, ordered by ID.
func (d *DB) GetCitedBy(id string) ([]string, error) {
	rows, err := d.db.Query(`
		SELECT source_id FROM citations
		WHERE target_id = ?
		ORDER BY source_id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying citers of %s: %w", id, err)
	}
	return scanIDs(rows)
}

// ListCitations returns every citation ordered by source and position.
func (d *DB) ListCitations() ([]citation.Edge, error) {
	rows, err := d.db.Query(`
		SELECT source_id, target_id FROM citations
		ORDER BY source_id, position`)
	if err != nil {
		return nil, fmt.Errorf("listing citations: %w", err)
	}
	defer rows.Close()

	var edges []citation.Edge
	for rows.Next() {
		var e citation.Edge
		if err := rows.Scan(&e.Source, &e.Target); err != nil {
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// CountCitations returns the number of stored citations.
func (d *DB) CountCitations() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM citations").Scan(&count)
	return count, err
}

// LoadGraph builds the in-memory citation graph from the citations table.
func (d *DB) LoadGraph() (*citation.Graph, error) {
	edges, err := d.ListCitations()
	if err != nil {
		return nil, err
	}
	return citation.FromEdges(edges), nil
}

func (d *DB) allReferences() (map[string][]string, error) {
	edges, err := d.ListCitations()
	if err != nil {
		return nil, err
	}
	refs := make(map[string][]string)
	for _, e := range edges {
		refs[e.Source] = append(refs[e.Source], e.Target)
	}
	return refs, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
