// Package journal records booking attempts for later inspection.
package journal

import (
	"context"
	"time"
)

type Attempt struct {
	ID          int64
	TargetStart string // canonical UTC slot start
	Phase       string // "checking" or "booking"
	Success     bool
	Detail      string
	CreatedAt   time.Time
}

type Journal interface {
	Record(ctx context.Context, a Attempt) error
	Close()
}

// Noop discards all attempts. Used when no journal is configured.
type Noop struct{}

func (Noop) Record(context.Context, Attempt) error { return nil }
func (Noop) Close()                                {}
