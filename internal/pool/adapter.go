package pool

import (
	"context"
	"log/slog"

	"github.com/roach88/overclock/internal/ir"
)

// backend is what the adapters need from a pool.
type backend interface {
	Insert(ctx context.Context, kind ir.Kind, count int64, simulate bool) (int64, error)
	ExtractEnergy(ctx context.Context, amount float64, simulate bool) (float64, error)
}

// sink adapts a backend to resolve.Sink. An error means nothing was
// inserted.
type sink struct {
	backend backend
	ctx     context.Context
	logger  *slog.Logger
}

func (s sink) TryInsert(stack ir.Stack, simulate bool) int64 {
	if stack.IsEmpty() {
		return 0
	}
	left, err := s.backend.Insert(s.ctx, stack.Kind, stack.Count, simulate)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("pool insert failed", "kind", string(stack.Kind), "count", stack.Count, "error", err)
		}
		return stack.Count
	}
	return left
}

// source adapts a backend to energy.Source. An error means nothing was
// extracted.
type source struct {
	backend backend
	ctx     context.Context
	logger  *slog.Logger
}

func (s source) Extract(amount float64, simulate bool) float64 {
	if amount <= 0 {
		return 0
	}
	got, err := s.backend.ExtractEnergy(s.ctx, amount, simulate)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("pool energy extract failed", "amount", amount, "error", err)
		}
		return 0
	}
	return got
}
