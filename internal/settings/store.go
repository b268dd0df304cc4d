// Package settings is a small namespaced key/value store for device
// configuration such as WiFi credentials, persisted in SQLite.
package settings

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/robot.frontend/internal/monitoring"
)

// MaxNameLength bounds namespace and key names.
const MaxNameLength = 15

var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("settings: key not found")
	// ErrInvalidName is returned for empty or overlong keys and namespaces.
	ErrInvalidName = errors.New("settings: invalid name")
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var logger = monitoring.Tag("settings")

// Store is a SQLite-backed settings database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the settings database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	// m is not closed: that would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	logger.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func validName(name string) error {
	if name == "" || len(name) > MaxNameLength {
		return fmt.Errorf("%w: %q must be 1 to %d bytes", ErrInvalidName, name, MaxNameLength)
	}
	return nil
}

// Namespace returns a handle on the keys of one namespace.
func (s *Store) Namespace(name string) (*Namespace, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return &Namespace{store: s, name: name}, nil
}

// Namespace groups keys, like an NVS namespace on the firmware.
type Namespace struct {
	store *Store
	name  string
}

// Name returns the namespace name.
func (n *Namespace) Name() string {
	return n.name
}

// GetString returns the value stored under key.
func (n *Namespace) GetString(ctx context.Context, key string) (string, error) {
	if err := validName(key); err != nil {
		return "", err
	}
	var value string
	err := n.store.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE namespace = ? AND key = ?`, n.name, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s/%s: %w", n.name, key, err)
	}
	return value, nil
}

// SetString stores value under key, replacing any previous value.
func (n *Namespace) SetString(ctx context.Context, key, value string) error {
	if err := validName(key); err != nil {
		return err
	}
	_, err := n.store.db.ExecContext(ctx, `
		INSERT INTO settings (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		n.name, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", n.name, key, err)
	}
	return nil
}

// Erase deletes key. It returns ErrNotFound if the key was not set.
func (n *Namespace) Erase(ctx context.Context, key string) error {
	if err := validName(key); err != nil {
		return err
	}
	res, err := n.store.db.ExecContext(ctx,
		`DELETE FROM settings WHERE namespace = ? AND key = ?`, n.name, key)
	if err != nil {
		return fmt.Errorf("failed to erase %s/%s: %w", n.name, key, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Keys lists the keys of the namespace in lexical order.
func (n *Namespace) Keys(ctx context.Context) ([]string, error) {
	rows, err := n.store.db.QueryContext(ctx,
		`SELECT key FROM settings WHERE namespace = ? ORDER BY key`, n.name)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", n.name, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
