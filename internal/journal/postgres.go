package journal

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Postgres stores attempts in a booking_attempts table. The schema is
// applied on open; there is nothing to migrate beyond it.
type Postgres struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply journal schema: %w", err)
		}
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Record(ctx context.Context, a Attempt) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO booking_attempts(target_start, phase, success, detail)
VALUES ($1,$2,$3,$4)`,
		a.TargetStart, a.Phase, a.Success, a.Detail)
	return err
}

// Recent returns the newest attempts first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, target_start, phase, success, detail, created_at
FROM booking_attempts
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.TargetStart, &a.Phase, &a.Success, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
