package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps the key-value pairs of one installation in a shared
// database, for kiosk deployments where several terminals share storage.
type Postgres struct {
	pool      *pgxpool.Pool
	namespace string
}

// OpenPostgres connects, pings and creates the kv table. namespace scopes
// the keys so several installations can share one table.
func OpenPostgres(ctx context.Context, dsn, namespace string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS client_kv (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (namespace, key)
	)`)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool, namespace: namespace}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM client_kv WHERE namespace = $1 AND key = $2`, p.namespace, key,
	).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (p *Postgres) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for k, v := range values {
		_, err = tx.Exec(ctx,
			`INSERT INTO client_kv (namespace, key, value) VALUES ($1,$2,$3)
			 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
			p.namespace, k, v,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *Postgres) DeleteMany(ctx context.Context, keys ...string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM client_kv WHERE namespace = $1 AND key = ANY($2)`, p.namespace, keys,
	)
	return err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
