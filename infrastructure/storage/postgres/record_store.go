package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
)

// RecordStore is a PostgreSQL-backed implementation of record.Store.
// The full record is kept as JSONB next to the columns used for
// filtering and for the status precondition.
type RecordStore struct {
	pool   *pgxpool.Pool
	schema string
	now    func() time.Time
}

// NewRecordStore creates a new PostgreSQL record store.
func NewRecordStore(pool *pgxpool.Pool, schema string) *RecordStore {
	if schema == "" {
		schema = "public"
	}
	return &RecordStore{
		pool:   pool,
		schema: schema,
		now:    time.Now,
	}
}

// tableName returns the fully qualified table name.
func (s *RecordStore) tableName() string {
	return fmt.Sprintf("%s.records", s.schema)
}

// Migrate creates the records table if it does not exist.
func (s *RecordStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			product TEXT NOT NULL,
			status TEXT NOT NULL,
			version BIGINT NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS records_owner_idx ON %[1]s (owner_id);
		CREATE INDEX IF NOT EXISTS records_product_status_idx ON %[1]s (product, status);
	`, s.tableName()))
	return s.wrapError(err)
}

// Create persists a new record.
func (s *RecordStore) Create(ctx context.Context, rec *order.Record) error {
	if rec == nil || rec.ID == "" {
		return record.ErrInvalidRecordID
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, product, status, version, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.tableName())

	_, err = s.pool.Exec(ctx, query,
		rec.ID,
		rec.OwnerID,
		string(rec.Product),
		string(rec.Status),
		rec.Version,
		data,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return record.ErrRecordExists
		}
		return s.wrapError(err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *RecordStore) Get(ctx context.Context, id string) (*order.Record, error) {
	if id == "" {
		return nil, record.ErrInvalidRecordID
	}

	var data []byte
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.tableName()), id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrRecordNotFound
		}
		return nil, s.wrapError(err)
	}
	return decodeRecord(data)
}

// Update locks the row, checks the precondition and writes the
// patched record in one transaction.
func (s *RecordStore) Update(ctx context.Context, id string, patch order.Patch, expect record.Expect) (*order.Record, error) {
	if id == "" {
		return nil, record.ErrInvalidRecordID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var data []byte
	err = tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE id = $1 FOR UPDATE`, s.tableName()), id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.ErrRecordNotFound
		}
		return nil, s.wrapError(err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	if !expect.Met(rec) {
		return nil, record.ErrPreconditionFailed
	}

	patch.Apply(rec, s.now())
	data, err = json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2, version = $3, data = $4, updated_at = $5
		WHERE id = $1
	`, s.tableName())
	if _, err := tx.Exec(ctx, query, rec.ID, string(rec.Status), rec.Version, data, rec.UpdatedAt); err != nil {
		return nil, s.wrapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, s.wrapError(err)
	}
	return rec, nil
}

// List returns records matching the filter, oldest first.
func (s *RecordStore) List(ctx context.Context, filter record.ListFilter) ([]*order.Record, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	var out []*order.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, s.wrapError(err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}
	return out, nil
}

// buildListQuery constructs the SELECT query for listing records.
func (s *RecordStore) buildListQuery(filter record.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if filter.Product != "" {
		args = append(args, string(filter.Product))
		conditions = append(conditions, fmt.Sprintf("product = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`SELECT data FROM %s`, s.tableName())
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

// wrapError wraps database errors with domain errors.
func (s *RecordStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(record.ErrOperationTimeout, err)
	}
	return errors.Join(record.ErrConnectionFailed, err)
}

func decodeRecord(data []byte) (*order.Record, error) {
	var rec order.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

var _ record.Store = (*RecordStore)(nil)
