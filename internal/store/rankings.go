package store

import (
	"database/sql"
	"fmt"
)

// LoadGraph returns every symbol id plus every edge as (from, to) pairs,
// the input to a PageRank pass.
func (s *Store) LoadGraph() (ids []int64, edges [][2]int64, err error) {
	rows, err := s.db.Query("SELECT id FROM symbols ORDER BY id")
	if err != nil {
		return nil, nil, fmt.Errorf("load symbol ids: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan symbol id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load symbol ids: %w", err)
	}

	rows, err = s.db.Query("SELECT from_symbol_id, to_symbol_id FROM edges")
	if err != nil {
		return nil, nil, fmt.Errorf("load edges: %w", err)
	}
	for rows.Next() {
		var from, to int64
		if err := rows.Scan(&from, &to); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, [2]int64{from, to})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load edges: %w", err)
	}
	return ids, edges, nil
}

// ReplaceRankings deletes all ranking rows and writes one per symbol, in
// a single transaction. Runs after the main index transaction commits,
// so queries in between may see the previous generation's scores but
// never inconsistent referential state.
func (s *Store) ReplaceRankings(rankings []Ranking) error {
	return s.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM rankings"); err != nil {
			return fmt.Errorf("clear rankings: %w", err)
		}
		stmt, err := tx.Prepare(
			"INSERT INTO rankings (symbol_id, rank, in_degree, out_degree) VALUES (?, ?, ?, ?)",
		)
		if err != nil {
			return fmt.Errorf("prepare ranking insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range rankings {
			if _, err := stmt.Exec(r.SymbolID, r.Rank, r.InDegree, r.OutDegree); err != nil {
				return fmt.Errorf("insert ranking for symbol %d: %w", r.SymbolID, err)
			}
		}
		return nil
	})
}
