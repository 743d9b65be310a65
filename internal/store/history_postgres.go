package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/qr-safe/internal/history"
)

// PostgresHistory is a PostgreSQL implementation of history.Store.
type PostgresHistory struct {
	pool *pgxpool.Pool
}

// NewPostgresHistory creates a new PostgreSQL-backed scan history store.
func NewPostgresHistory(pool *pgxpool.Pool) *PostgresHistory {
	return &PostgresHistory{pool: pool}
}

// SaveScan appends a scan entry. Redelivered events with a known id are ignored.
func (p *PostgresHistory) SaveScan(ctx context.Context, event *history.ScanRecordedEvent) error {
	query := `
		INSERT INTO scan_history
			(id, request_id, scanned_url, normalized_url, scanned_at, client_ip, user_agent,
			 referrer, is_verified, is_malicious, is_safe, action)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		event.ID,
		event.RequestID,
		event.ScannedURL,
		event.NormalizedURL,
		event.ScannedAt,
		event.ClientIP,
		event.UserAgent,
		event.Referrer,
		event.IsVerified,
		event.IsMalicious,
		event.IsSafe,
		string(event.Action),
	)

	return err
}

// CountScans returns the number of entries recorded for key.
func (p *PostgresHistory) CountScans(ctx context.Context, key string) (int64, error) {
	var count int64

	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scan_history WHERE normalized_url = $1`, key,
	).Scan(&count)

	return count, err
}

var _ history.Store = (*PostgresHistory)(nil)
