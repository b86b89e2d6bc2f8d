package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
)

// RecordStore is a SQLite-backed implementation of record.Store.
type RecordStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewRecordStore creates a new SQLite record store with the given configuration.
func NewRecordStore(cfg Config, opts ...Option) (*RecordStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &RecordStore{db: db, now: time.Now}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// migrate creates the records table if it doesn't exist.
func (s *RecordStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			product TEXT NOT NULL,
			status TEXT NOT NULL,
			version INTEGER NOT NULL,
			data BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_records_owner ON records(owner_id);
		CREATE INDEX IF NOT EXISTS idx_records_product_status ON records(product, status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Create persists a new record.
func (s *RecordStore) Create(ctx context.Context, rec *order.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil || rec.ID == "" {
		return record.ErrInvalidRecordID
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, owner_id, product, status, version, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, string(rec.Product), string(rec.Status), rec.Version,
		data, rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return record.ErrRecordExists
		}
		return errors.Join(record.ErrConnectionFailed, err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *RecordStore) Get(ctx context.Context, id string) (*order.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, record.ErrInvalidRecordID
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM records WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrRecordNotFound
	}
	if err != nil {
		return nil, errors.Join(record.ErrConnectionFailed, err)
	}
	return decodeRecord(data)
}

// Update applies patch when the stored record meets expect. The write
// is conditional on the version read, so a concurrent writer that slips
// in between read and write also fails the precondition.
func (s *RecordStore) Update(ctx context.Context, id string, patch order.Patch, expect record.Expect) (*order.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, record.ErrInvalidRecordID
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !expect.Met(rec) {
		return nil, record.ErrPreconditionFailed
	}

	readVersion := rec.Version
	patch.Apply(rec, s.now())
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET status = ?, version = ?, data = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND version = ?`,
		string(rec.Status), rec.Version, data, rec.UpdatedAt.UnixNano(),
		id, string(expect.Status), readVersion,
	)
	if err != nil {
		return nil, errors.Join(record.ErrConnectionFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Join(record.ErrConnectionFailed, err)
	}
	if n == 0 {
		return nil, record.ErrPreconditionFailed
	}
	return rec, nil
}

// List returns records matching the filter, oldest first.
func (s *RecordStore) List(ctx context.Context, filter record.ListFilter) ([]*order.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := `SELECT data FROM records`
	where, args := buildWhereClause(filter)
	query += where + ` ORDER BY created_at ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(record.ErrConnectionFailed, err)
	}
	defer rows.Close()

	var out []*order.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func buildWhereClause(filter record.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Product != "" {
		conditions = append(conditions, "product = ?")
		args = append(args, string(filter.Product))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Close closes the database connection.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

func decodeRecord(data []byte) (*order.Record, error) {
	var rec order.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// isUniqueViolation checks if the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ record.Store = (*RecordStore)(nil)
