package store

import (
	"context"
	"fmt"
)

// NodeSummary aggregates the journaled work of one node within a run.
type NodeSummary struct {
	NodeID    string `json:"node_id"`
	Events    int64  `json:"events"`
	Committed int64  `json:"committed"`
	Energy    int64  `json:"energy_milli"`
	Aborts    int64  `json:"aborts"`
}

// ReadRunInfo retrieves a run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRunInfo(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, config FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Label, &r.Config)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns every run ordered by ID. Run IDs are UUIDv7, so this is
// creation order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, config FROM runs ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Label, &r.Config); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: iterate: %w", err)
	}
	return runs, nil
}

// LastSeq returns the highest seq journaled for a run, or 0. Used to
// continue a run with engine.NewClockAt.
func (s *Store) LastSeq(ctx context.Context, runID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM step_events WHERE run_id = ?
	`, runID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// Summarize aggregates a run per node, ordered by node ID.
func (s *Store) Summarize(ctx context.Context, runID string) ([]NodeSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id,
		       COUNT(*),
		       COALESCE(SUM(committed), 0),
		       COALESCE(SUM(energy_milli), 0),
		       COALESCE(SUM(CASE WHEN kind = 'aborted' THEN 1 ELSE 0 END), 0)
		FROM step_events
		WHERE run_id = ?
		GROUP BY node_id
		ORDER BY node_id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	defer rows.Close()

	out := []NodeSummary{}
	for rows.Next() {
		var n NodeSummary
		if err := rows.Scan(&n.NodeID, &n.Events, &n.Committed, &n.Energy, &n.Aborts); err != nil {
			return nil, fmt.Errorf("summarize: scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summarize: iterate: %w", err)
	}
	return out, nil
}
