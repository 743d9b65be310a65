package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/qr-safe/internal/trust"
)

const pgCheckViolation = "23514"

// PostgresRegistry is a PostgreSQL implementation of trust.Registry.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates a new PostgreSQL-backed registry.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

func (p *PostgresRegistry) FindPartner(ctx context.Context, key trust.NormalizedURL) (*trust.VerifiedPartner, error) {
	query := `
		SELECT company_name, original_url, normalized_url, verification_date, category, notes
		FROM verified_partners
		WHERE normalized_url = $1
	`

	var partner trust.VerifiedPartner

	err := p.pool.QueryRow(ctx, query, string(key)).Scan(
		&partner.CompanyName,
		&partner.OriginalURL,
		&partner.NormalizedURL,
		&partner.VerificationDate,
		&partner.Category,
		&partner.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trust.ErrNotFound
		}

		return nil, err
	}

	return &partner, nil
}

func (p *PostgresRegistry) FindMalicious(ctx context.Context, key trust.NormalizedURL) (*trust.MaliciousURL, error) {
	query := `
		SELECT original_url, normalized_url, threat_type, threat_details, reported_date, confirmed, source
		FROM malicious_urls
		WHERE normalized_url = $1
	`

	var record trust.MaliciousURL

	err := p.pool.QueryRow(ctx, query, string(key)).Scan(
		&record.OriginalURL,
		&record.NormalizedURL,
		&record.ThreatType,
		&record.Details,
		&record.ReportedDate,
		&record.Confirmed,
		&record.Source,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trust.ErrNotFound
		}

		return nil, err
	}

	return &record, nil
}

// SavePartner inserts a partner unless its key already exists. It reports
// whether a row was written.
func (p *PostgresRegistry) SavePartner(ctx context.Context, partner trust.VerifiedPartner) (bool, error) {
	query := `
		INSERT INTO verified_partners
			(company_name, original_url, normalized_url, verification_date, category, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (normalized_url) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query,
		partner.CompanyName,
		partner.OriginalURL,
		string(partner.NormalizedURL),
		partner.VerificationDate,
		partner.Category,
		partner.Notes,
	)
	if err != nil {
		return false, translateWriteErr(err, partner.NormalizedURL)
	}

	return tag.RowsAffected() == 1, nil
}

// SaveMalicious inserts a malicious URL unless its key already exists. It
// reports whether a row was written.
func (p *PostgresRegistry) SaveMalicious(ctx context.Context, record trust.MaliciousURL) (bool, error) {
	query := `
		INSERT INTO malicious_urls
			(original_url, normalized_url, threat_type, threat_details, reported_date, confirmed, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (normalized_url) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query,
		record.OriginalURL,
		string(record.NormalizedURL),
		record.ThreatType,
		record.Details,
		record.ReportedDate,
		record.Confirmed,
		record.Source,
	)
	if err != nil {
		return false, translateWriteErr(err, record.NormalizedURL)
	}

	return tag.RowsAffected() == 1, nil
}

// Conflicts returns keys present in both tables.
func (p *PostgresRegistry) Conflicts(ctx context.Context) ([]trust.NormalizedURL, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT v.normalized_url
		FROM verified_partners v
		JOIN malicious_urls m ON m.normalized_url = v.normalized_url
		ORDER BY v.normalized_url
	`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (trust.NormalizedURL, error) {
		var key string
		err := row.Scan(&key)

		return trust.NormalizedURL(key), err
	})
}

// Counts returns the number of records in each table.
func (p *PostgresRegistry) Counts(ctx context.Context) (partners, malicious int64, err error) {
	err = p.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM verified_partners), (SELECT COUNT(*) FROM malicious_urls)
	`).Scan(&partners, &malicious)

	return partners, malicious, err
}

// Ping checks PostgreSQL connectivity.
func (p *PostgresRegistry) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func translateWriteErr(err error, key trust.NormalizedURL) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return fmt.Errorf("%w: %s", trust.ErrRegistryConflict, key)
	}

	return err
}

var _ trust.Registry = (*PostgresRegistry)(nil)
