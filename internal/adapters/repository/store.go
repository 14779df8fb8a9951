// Package repository persists the pump catalog and sampled curve points.
package repository

import (
	"context"

	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/pump"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type string
}

// Store provides read/write access to the catalog.
type Store interface {
	// Upsert inserts or replaces a pump and drops its stored points. The
	// pump must pass Validate.
	Upsert(ctx context.Context, spec pump.Spec) error
	// Get returns a pump by id or ErrNotFound.
	Get(ctx context.Context, id string) (pump.Spec, error)
	// List returns pumps in catalog insertion order.
	List(ctx context.Context, f Filter) ([]pump.Spec, error)
	// Delete removes a pump and its points. Returns ErrNotFound if unknown.
	Delete(ctx context.Context, id string) error
	// Count returns the number of pumps in the catalog.
	Count(ctx context.Context) (int, error)

	// ReplacePoints atomically replaces every stored point of a pump.
	ReplacePoints(ctx context.Context, pumpID string, points []curve.Point) error
	// Points returns stored points for a pump ordered by ascending flow.
	Points(ctx context.Context, pumpID string) ([]curve.Point, error)

	Close() error
}
