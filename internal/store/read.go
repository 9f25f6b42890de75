package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/roach88/overclock/internal/ir"
)

const eventColumns = `
	id, run_id, seq, node_id, step, kind, recipe, requested, resolved, committed,
	energy_milli, bound, reason, limit_material, limit_output, limit_energy`

// ReadRun returns all events of a run.
// Results are ordered deterministically: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadRun(ctx context.Context, runID string) ([]ir.StepEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM step_events
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

// ReadNode returns the events of one node within a run, in seq order.
func (s *Store) ReadNode(ctx context.Context, runID, nodeID string) ([]ir.StepEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM step_events
		WHERE run_id = ? AND node_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("query node events: %w", err)
	}
	return scanEvents(rows)
}

// ReadEvent retrieves a single event by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEvent(ctx context.Context, id string) (ir.StepEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM step_events
		WHERE id = ?
	`, id)
	return scanEvent(row)
}

// ExportRun writes the canonical JSON payload of every event of a run, one
// per line, in seq order.
func (s *Store) ExportRun(ctx context.Context, runID string, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload
		FROM step_events
		WHERE run_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("export run: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("export run: scan: %w", err)
		}
		if _, err := io.WriteString(w, payload+"\n"); err != nil {
			return fmt.Errorf("export run: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("export run: iterate: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (ir.StepEvent, error) {
	var (
		ev    ir.StepEvent
		kind  string
		bound string
	)
	err := row.Scan(
		&ev.ID,
		&ev.RunID,
		&ev.Seq,
		&ev.NodeID,
		&ev.Step,
		&kind,
		&ev.Recipe,
		&ev.Requested,
		&ev.Resolved,
		&ev.Committed,
		&ev.Energy,
		&bound,
		&ev.Reason,
		&ev.Limits.Material,
		&ev.Limits.Output,
		&ev.Limits.Energy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return ir.StepEvent{}, err
		}
		return ir.StepEvent{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Kind = ir.EventKind(kind)
	ev.Bound = ir.Bound(bound)
	return ev, nil
}

func scanEvents(rows *sql.Rows) ([]ir.StepEvent, error) {
	defer rows.Close()

	var events []ir.StepEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	// Return empty slice instead of nil
	if events == nil {
		events = []ir.StepEvent{}
	}
	return events, nil
}
