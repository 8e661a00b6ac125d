package db

import (
	"context"
	"fmt"

	"osakana/internal/ranking"
)

// RankingStore keeps the ranking list in the ranking_entries table, one row
// per position.
type RankingStore struct {
	db *DB
}

func NewRankingStore(d *DB) *RankingStore {
	return &RankingStore{db: d}
}

// Save replaces the stored list with entries in a single transaction.
func (s *RankingStore) Save(ctx context.Context, entries []ranking.Entry) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ranking transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ranking_entries`); err != nil {
		return fmt.Errorf("clearing ranking: %w", err)
	}
	for i, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ranking_entries (position, user_id, username, combo, updated_at)
			VALUES ($1, $2, $3, $4, now())
		`, i, e.ID, e.Username, int64(e.Combo))
		if err != nil {
			return fmt.Errorf("inserting ranking entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ranking: %w", err)
	}
	return nil
}

func (s *RankingStore) Load(ctx context.Context) ([]ranking.Entry, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT user_id, username, combo
		FROM ranking_entries
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying ranking: %w", err)
	}
	defer rows.Close()

	entries := []ranking.Entry{}
	for rows.Next() {
		var (
			e     ranking.Entry
			combo int64
		)
		if err := rows.Scan(&e.ID, &e.Username, &combo); err != nil {
			return nil, fmt.Errorf("scanning ranking entry: %w", err)
		}
		e.Combo = uint32(combo)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ranking: %w", err)
	}
	return entries, nil
}
