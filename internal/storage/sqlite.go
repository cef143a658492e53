// Package storage implements sqlite persistence for cases, customers,
// transactions, narratives, audit trails and templates.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the persistence collaborator using SQLite.
type SQLiteStorage struct {
	db             *sql.DB
	narrativeLocks map[string]*sync.Mutex
	dbPath         string
	locksMu        sync.Mutex
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:             db,
		dbPath:         dbPath,
		narrativeLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// narrativeLock returns the append mutex for one narrative's trail.
// Appends within a single trail are strictly serialized (single-writer);
// distinct narratives' trails need no mutual exclusion.
func (s *SQLiteStorage) narrativeLock(narrativeID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.narrativeLocks[narrativeID]
	if !ok {
		lock = &sync.Mutex{}
		s.narrativeLocks[narrativeID] = lock
	}
	return lock
}
