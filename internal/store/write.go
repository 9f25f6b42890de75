package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/overclock/internal/ir"
)

// Run is one journaled engine run.
type Run struct {
	ID     string
	Label  string
	Config string
}

// WriteRun inserts or relabels a run. The config value is stored as JSON.
func (s *Store) WriteRun(ctx context.Context, id, label string, config any) error {
	if id == "" {
		return errors.New("write run: missing id")
	}
	cfgJSON, err := marshalConfig(config)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, label, config)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET label = excluded.label, config = excluded.config
	`, id, label, cfgJSON)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteEvent appends a step event to the journal.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: the ID is a content hash,
// so writing the same event twice is a no-op. A different event with the
// same (run, seq) violates the UNIQUE constraint and returns an error.
//
// The run row is created if it does not exist yet, in the same transaction.
func (s *Store) WriteEvent(ctx context.Context, ev ir.StepEvent) error {
	if ev.ID == "" {
		return errors.New("write event: missing id")
	}
	payload, err := marshalPayload(ev)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write event: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`, ev.RunID); err != nil {
		return fmt.Errorf("write event: ensure run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO step_events
		(id, run_id, seq, node_id, step, kind, recipe, requested, resolved, committed,
		 energy_milli, bound, reason, limit_material, limit_output, limit_energy, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.RunID,
		ev.Seq,
		ev.NodeID,
		ev.Step,
		string(ev.Kind),
		ev.Recipe,
		ev.Requested,
		ev.Resolved,
		ev.Committed,
		ev.Energy,
		string(ev.Bound),
		ev.Reason,
		ev.Limits.Material,
		ev.Limits.Output,
		ev.Limits.Energy,
		payload,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write event: commit: %w", err)
	}
	return nil
}

// Record implements engine.Recorder.
func (s *Store) Record(ctx context.Context, ev ir.StepEvent) error {
	return s.WriteEvent(ctx, ev)
}
