package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool  *pgxpool.Pool
	table string
}

func NewPostgres(ctx context.Context, url, table string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	p := &Postgres{pool: pool, table: pgx.Identifier{table}.Sanitize()}

	_, err = pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		scene    TEXT PRIMARY KEY,
		frame    INTEGER NOT NULL,
		sprites  INTEGER NOT NULL,
		body     BYTEA NOT NULL,
		saved_at TIMESTAMPTZ NOT NULL
	)`, p.table))
	if err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Save(ctx context.Context, snap *Snapshot) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (scene, frame, sprites, body, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scene) DO UPDATE
		SET frame = EXCLUDED.frame, sprites = EXCLUDED.sprites, body = EXCLUDED.body, saved_at = EXCLUDED.saved_at`, p.table),
		snap.Scene, snap.Frame, snap.Sprites, snap.Body, snap.SavedAt)
	return err
}

func (p *Postgres) Load(ctx context.Context, scene string) (*Snapshot, error) {
	snap := Snapshot{Scene: scene}
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT frame, sprites, body, saved_at FROM %s WHERE scene = $1`, p.table), scene).
		Scan(&snap.Frame, &snap.Sprites, &snap.Body, &snap.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (p *Postgres) Close(context.Context) error {
	p.pool.Close()
	return nil
}
