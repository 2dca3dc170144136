package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlinks/internal/shortener"
)

const uniqueViolation = "23505"

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
// Timestamps are stored as Unix seconds.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed link store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const selectLink = `SELECT code, long_url, url_hash, created_at, expires_at FROM short_links`

func (p *PostgresStore) FindByLongURL(ctx context.Context, longURL string) (*shortener.Link, error) {
	query := selectLink + `
		WHERE url_hash = $1 AND long_url = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	return p.queryOne(ctx, query, string(shortener.HashURL(longURL)), longURL)
}

func (p *PostgresStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.Link, error) {
	return p.queryOne(ctx, selectLink+` WHERE code = $1`, string(code))
}

func (p *PostgresStore) Insert(ctx context.Context, link *shortener.Link) error {
	query := `
		INSERT INTO short_links (code, long_url, url_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING
	`

	urlHash := link.URLHash
	if urlHash == "" {
		urlHash = shortener.HashURL(link.LongURL)
	}

	tag, err := p.pool.Exec(ctx, query,
		string(link.Code),
		link.LongURL,
		string(urlHash),
		link.CreatedAt.Unix(),
		nullableUnix(link.ExpiresAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shortener.ErrDuplicateCode
		}

		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrDuplicateCode
	}

	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, code shortener.Code) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM short_links WHERE code = $1`, string(code))

	return err
}

func (p *PostgresStore) ListAll(ctx context.Context) ([]*shortener.Link, error) {
	rows, err := p.pool.Query(ctx, selectLink+` ORDER BY created_at, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*shortener.Link

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, rows.Err()
}

func (p *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM short_links WHERE expires_at IS NOT NULL AND expires_at < $1`,
		now.Unix(),
	)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64

	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM short_links`).Scan(&n)

	return n, err
}

func (p *PostgresStore) queryOne(ctx context.Context, query string, args ...any) (*shortener.Link, error) {
	link, err := scanLink(p.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return link, nil
}

func scanLink(row pgx.Row) (*shortener.Link, error) {
	var (
		link      shortener.Link
		code      string
		urlHash   string
		createdAt int64
		expiresAt *int64
	)

	if err := row.Scan(&code, &link.LongURL, &urlHash, &createdAt, &expiresAt); err != nil {
		return nil, err
	}

	link.Code = shortener.Code(code)
	link.URLHash = shortener.URLHash(urlHash)
	link.CreatedAt = time.Unix(createdAt, 0)

	if expiresAt != nil {
		t := time.Unix(*expiresAt, 0)
		link.ExpiresAt = &t
	}

	return &link, nil
}

func nullableUnix(t *time.Time) *int64 {
	if t == nil {
		return nil
	}

	ts := t.Unix()

	return &ts
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)
