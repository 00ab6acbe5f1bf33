package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection that backs the appointment book.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	ErrNotFound       = errors.New("not found")
	ErrSlotConflict   = errors.New("slot already booked")
	ErrPastDate       = errors.New("cannot book in the past")
	ErrDateTooFar     = errors.New("date is too far in the future")
	ErrDuplicateEmail = errors.New("email already registered")
)

// NewDB opens the database at path and creates the schema if missing.
// An unreadable database file is renamed aside and replaced with an empty
// collection rather than failing startup.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode, busy timeout for the single-writer serialization point.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		db, err = recoverCorrupt(path, dsn, err, logger)
		if err != nil {
			return nil, err
		}
	}

	instance := &DB{DB: db, logger: logger}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

// recoverCorrupt moves an unreadable database file aside and reopens fresh.
func recoverCorrupt(path, dsn string, cause error, logger *zerolog.Logger) (*sql.DB, error) {
	backup := path + ".corrupt." + time.Now().Format("20060102_150405")
	if err := os.Rename(path, backup); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", cause)
	}
	logger.Warn().Err(cause).Str("moved_to", backup).Msg("Unreadable database replaced with empty collection")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS doctors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			specialization TEXT NOT NULL,
			qualification TEXT,
			experience TEXT,
			rating REAL NOT NULL DEFAULT 0,
			availability TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doctor_id INTEGER NOT NULL,
			doctor_name TEXT NOT NULL,
			doctor_specialization TEXT,
			patient_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			disease TEXT NOT NULL,
			notes TEXT,
			date TEXT NOT NULL,
			time_slot TEXT NOT NULL,
			slot_minutes INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			reminder_sent BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Atomic insert-if-absent keyed by the slot triple. Cancelled rows are
		// excluded so a freed slot can be rebooked.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_appointments_slot
			ON appointments(doctor_id, date, time_slot)
			WHERE status != 'cancelled'`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_date ON appointments(date, slot_minutes)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_doctor ON appointments(doctor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_reminder ON appointments(reminder_sent, date)`,

		`CREATE TABLE IF NOT EXISTS support_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS medical_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			patient_name TEXT NOT NULL,
			date TEXT NOT NULL,
			diagnosis TEXT NOT NULL,
			prescription TEXT,
			next_visit TEXT,
			doctor_name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS home_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			patient_name TEXT NOT NULL,
			address TEXT NOT NULL,
			phone TEXT NOT NULL,
			date TEXT NOT NULL,
			time_slot TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a sqlite unique-constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (db *DB) Close() error {
	return db.DB.Close()
}
