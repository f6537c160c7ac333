package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/migrations"
)

// PostgresStore keeps each ride and user as a JSONB document with a version
// column used for optimistic concurrency.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// Migrate applies the embedded schema with goose.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, p.db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func (p *PostgresStore) GetRide(ctx context.Context, id string) (models.Ride, error) {
	return scanRide(p.db.QueryRowContext(ctx, `SELECT doc, version FROM rides WHERE id=$1`, id), id)
}

func (p *PostgresStore) ListRides(ctx context.Context) ([]models.Ride, error) {
	return queryRides(ctx, p.db)
}

func (p *PostgresStore) CreateRide(ctx context.Context, r models.Ride) error {
	r.Version = 1
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `INSERT INTO rides(id, doc, version, created_at) VALUES($1,$2,1,$3) ON CONFLICT (id) DO NOTHING`, r.ID, b, r.CreatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ride %s exists: %w", r.ID, models.ErrConflict)
	}
	return nil
}

func (p *PostgresStore) GetUser(ctx context.Context, id string) (models.User, error) {
	return scanUser(p.db.QueryRowContext(ctx, `SELECT doc FROM users WHERE id=$1`, id), id)
}

func (p *PostgresStore) PutUser(ctx context.Context, u models.User) error {
	return upsertUser(ctx, p.db, u)
}

// Update locks every ride and user it reads (SELECT ... FOR UPDATE) and
// writes rides back only if their version is unchanged.
func (p *PostgresStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = sqlTx.Rollback() }()

	tx := &postgresTx{ctx: ctx, tx: sqlTx, staged: newStaged()}
	if err := fn(tx); err != nil {
		return err
	}
	for _, id := range tx.order {
		r := tx.rides[id]
		prev := r.Version
		r.Version = prev + 1
		b, err := json.Marshal(r)
		if err != nil {
			return err
		}
		res, err := sqlTx.ExecContext(ctx, `UPDATE rides SET doc=$2, version=$3 WHERE id=$1 AND version=$4`, id, b, r.Version, prev)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("ride %s at version %d: %w", id, prev, models.ErrConflict)
		}
	}
	for _, u := range tx.users {
		if err := upsertUser(ctx, sqlTx, u); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

type postgresTx struct {
	ctx context.Context
	tx  *sql.Tx
	staged
}

func (t *postgresTx) Ride(id string) (models.Ride, error) {
	if r, ok := t.ride(id); ok {
		return r, nil
	}
	return scanRide(t.tx.QueryRowContext(t.ctx, `SELECT doc, version FROM rides WHERE id=$1 FOR UPDATE`, id), id)
}

func (t *postgresTx) Rides() ([]models.Ride, error) {
	committed, err := queryRides(t.ctx, t.tx)
	if err != nil {
		return nil, err
	}
	return t.overlay(committed), nil
}

func (t *postgresTx) User(id string) (models.User, error) {
	if u, ok := t.user(id); ok {
		return u, nil
	}
	return scanUser(t.tx.QueryRowContext(t.ctx, `SELECT doc FROM users WHERE id=$1 FOR UPDATE`, id), id)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func queryRides(ctx context.Context, q querier) ([]models.Ride, error) {
	rows, err := q.QueryContext(ctx, `SELECT doc, version FROM rides ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Ride
	for rows.Next() {
		var (
			doc     []byte
			version int64
			r       models.Ride
		)
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, err
		}
		r.Version = version
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRide(row *sql.Row, id string) (models.Ride, error) {
	var (
		doc     []byte
		version int64
		r       models.Ride
	)
	if err := row.Scan(&doc, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, fmt.Errorf("ride %s: %w", id, models.ErrNotFound)
		}
		return r, err
	}
	if err := json.Unmarshal(doc, &r); err != nil {
		return r, err
	}
	r.Version = version
	return r, nil
}

func scanUser(row *sql.Row, id string) (models.User, error) {
	var (
		doc []byte
		u   models.User
	)
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		return u, err
	}
	return u, json.Unmarshal(doc, &u)
}

func upsertUser(ctx context.Context, q querier, u models.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO users(id, doc) VALUES($1,$2) ON CONFLICT (id) DO UPDATE SET doc=EXCLUDED.doc, version=users.version+1`, u.ID, b)
	return err
}
