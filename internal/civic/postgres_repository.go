package civic

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL complaint repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS civic_reports (
		id          TEXT PRIMARY KEY,
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL,
		address     TEXT NOT NULL DEFAULT '',
		report_type TEXT NOT NULL,
		description TEXT NOT NULL,
		severity    TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'active',
		reporter_id TEXT,
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS civic_reports_status_lat_lon_idx
		ON civic_reports (status, latitude, longitude);
`

// EnsureSchema creates the civic_reports table and its geo index if missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("%w: ensure schema: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Create stores a new complaint.
func (r *PostgresRepository) Create(ctx context.Context, c *Complaint) error {
	query := `
		INSERT INTO civic_reports (
			id, latitude, longitude, address,
			report_type, description, severity, status,
			reporter_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Location.Latitude,
		c.Location.Longitude,
		c.Location.Address,
		string(c.Category),
		c.Description,
		string(c.Severity),
		string(c.Status),
		c.ReporterID,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert complaint: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// FindNearby selects active complaints inside the query's bounding box.
func (r *PostgresRepository) FindNearby(ctx context.Context, q NearbyQuery) ([]*Complaint, error) {
	query, args := buildNearbyQuery(q)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query complaints: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	complaints := make([]*Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan complaint: %w", ErrStoreUnavailable, err)
		}
		complaints = append(complaints, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate complaints: %w", ErrStoreUnavailable, err)
	}

	return complaints, nil
}

// Ping checks the pool can reach the database.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// buildNearbyQuery renders q as SQL with positional arguments.
func buildNearbyQuery(q NearbyQuery) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT
			id, latitude, longitude, address,
			report_type, description, severity, status,
			reporter_id, created_at
		FROM civic_reports
		WHERE status = $1`)
	args := []interface{}{string(StatusActive)}

	if box, ok := q.Box(); ok {
		fmt.Fprintf(&sb, `
			AND latitude BETWEEN $%d AND $%d
			AND longitude BETWEEN $%d AND $%d`,
			len(args)+1, len(args)+2, len(args)+3, len(args)+4)
		args = append(args, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	}

	if q.Category != "" {
		fmt.Fprintf(&sb, `
			AND report_type = $%d`, len(args)+1)
		args = append(args, string(q.Category))
	}

	if q.NewestFirst {
		sb.WriteString(`
		ORDER BY created_at DESC`)
	}

	fmt.Fprintf(&sb, `
		LIMIT $%d`, len(args)+1)
	args = append(args, q.limit())

	return sb.String(), args
}

func scanComplaint(row pgx.Row) (*Complaint, error) {
	var (
		c                          Complaint
		category, severity, status string
	)

	err := row.Scan(
		&c.ID,
		&c.Location.Latitude,
		&c.Location.Longitude,
		&c.Location.Address,
		&category,
		&c.Description,
		&severity,
		&status,
		&c.ReporterID,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Category = Category(category)
	c.Severity = Severity(severity)
	c.Status = Status(status)
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
