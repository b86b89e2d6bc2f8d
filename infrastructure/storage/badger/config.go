// Package badger provides a BadgerDB-backed audit journal.
package badger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/orderflow/infrastructure/logging"
)

// Config configures the journal database.
type Config struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps the journal in memory, for tests.
	InMemory bool

	// KeyPrefix namespaces journal keys when the database is shared.
	KeyPrefix string

	// Retention expires entries this long after they are appended. Zero
	// keeps them forever. Sequence counters never expire, so numbering
	// stays monotonic after old entries are gone.
	Retention time.Duration

	// ConflictRetries bounds re-runs of an append that lost a transaction
	// conflict to a concurrent append on the same record.
	ConflictRetries int

	// GCInterval is the time between value log GC runs. Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the discard ratio passed to each GC run.
	GCDiscardRatio float64

	// Quiet drops badger's own log output instead of forwarding it.
	Quiet bool
}

// Option configures the journal.
type Option func(*Config)

// WithDir sets the data directory.
func WithDir(dir string) Option {
	return func(c *Config) { c.Dir = dir }
}

// WithInMemory keeps the journal in memory.
func WithInMemory() Option {
	return func(c *Config) { c.InMemory = true }
}

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// WithRetention expires entries after d.
func WithRetention(d time.Duration) Option {
	return func(c *Config) { c.Retention = d }
}

// WithGCInterval sets the GC interval.
func WithGCInterval(d time.Duration) Option {
	return func(c *Config) { c.GCInterval = d }
}

// DefaultConfig returns the journal defaults: durable writes are implied,
// entries are kept forever and the value log is collected every 5 minutes.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:       "orderflow:",
		ConflictRetries: 5,
		GCInterval:      5 * time.Minute,
		GCDiscardRatio:  0.5,
	}
}

// ErrConnectionFailed is returned when the database cannot be opened.
var ErrConnectionFailed = errors.New("badger: connection failed")

func openDB(cfg Config) (*badger.DB, error) {
	if cfg.Retention < 0 {
		return nil, fmt.Errorf("badger: negative retention %s", cfg.Retention)
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithNumVersionsToKeep(1)
	if !cfg.InMemory {
		// Journal entries are the audit trail; an acknowledged append must
		// survive a crash.
		opts = opts.WithSyncWrites(true)
	}
	if cfg.Quiet {
		opts = opts.WithLogger(nil)
	} else {
		opts = opts.WithLogger(journalLogger{})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}

// journalLogger forwards badger's log lines to the service logger.
type journalLogger struct{}

func (journalLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Add(logging.Component("audit-journal")).Msg(line(format, args))
}

func (journalLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Add(logging.Component("audit-journal")).Msg(line(format, args))
}

func (journalLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Add(logging.Component("audit-journal")).Msg(line(format, args))
}

func (journalLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Add(logging.Component("audit-journal")).Msg(line(format, args))
}

func line(format string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
