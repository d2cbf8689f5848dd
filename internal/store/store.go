// Package store persists round outcomes in SQLite so operators can
// audit deaths and settlements after the fact. Writes never sit on the
// tick path: events are queued and flushed by a background writer.
package store

import (
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"coil-and-cash/server/internal/arena"
)

const writeQueueSize = 256

const schema = `
CREATE TABLE IF NOT EXISTS deaths (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    room_id TEXT NOT NULL,
    player_id TEXT NOT NULL,
    player_name TEXT NOT NULL,
    cause TEXT NOT NULL,
    killer_name TEXT NOT NULL DEFAULT '',
    score REAL NOT NULL,
    stake_lost REAL NOT NULL,
    time_alive REAL NOT NULL,
    recorded_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cashouts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    room_id TEXT NOT NULL,
    player_id TEXT NOT NULL,
    player_name TEXT NOT NULL,
    success INTEGER NOT NULL,
    total_pot REAL NOT NULL,
    player_receives REAL NOT NULL,
    reference TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deaths_room ON deaths(room_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_cashouts_room ON cashouts(room_id, recorded_at);
`

// Store writes outcome rows to SQLite off the game loop.
type Store struct {
	sqlDB  *sql.DB
	logger *log.Logger

	mu     sync.Mutex
	closed bool
	queue  chan writeOp
	done   chan struct{}
}

type writeOp struct {
	query string
	args  []any
}

// Open opens (creating if needed) an outcome database at path.
func Open(path string, logger *log.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{
		sqlDB:  sqlDB,
		logger: logger,
		queue:  make(chan writeOp, writeQueueSize),
		done:   make(chan struct{}),
	}
	go s.runWriter()
	return s, nil
}

// Close drains pending writes and releases the connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
	return s.sqlDB.Close()
}

// RecordDeath persists one death outcome. It never blocks the caller;
// under sustained backpressure rows are dropped with a log line.
func (s *Store) RecordDeath(roomID string, ev arena.DeathEvent) {
	s.enqueue(writeOp{
		query: `INSERT INTO deaths (room_id, player_id, player_name, cause, killer_name, score, stake_lost, time_alive, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args: []any{
			roomID, ev.PlayerID, ev.Name, ev.Cause, ev.KillerName,
			ev.Score, ev.StakeLost, ev.TimeAlive, time.Now().UTC().UnixMilli(),
		},
	})
}

// RecordCashout persists one cashout outcome, successful or not.
func (s *Store) RecordCashout(roomID string, ev arena.CashoutEvent, success bool) {
	s.enqueue(writeOp{
		query: `INSERT INTO cashouts (room_id, player_id, player_name, success, total_pot, player_receives, reference, reason, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args: []any{
			roomID, ev.PlayerID, ev.Name, boolToInt(success),
			ev.TotalPot, ev.PlayerReceives, ev.Reference, ev.Reason,
			time.Now().UTC().UnixMilli(),
		},
	})
}

// DeathCount reports rows recorded for a room. Used by diagnostics.
func (s *Store) DeathCount(roomID string) (int64, error) {
	var count int64
	err := s.sqlDB.QueryRow(`SELECT COUNT(*) FROM deaths WHERE room_id = ?`, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count deaths: %w", err)
	}
	return count, nil
}

// CashoutCount reports cashout rows recorded for a room.
func (s *Store) CashoutCount(roomID string) (int64, error) {
	var count int64
	err := s.sqlDB.QueryRow(`SELECT COUNT(*) FROM cashouts WHERE room_id = ?`, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cashouts: %w", err)
	}
	return count, nil
}

func (s *Store) enqueue(op writeOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- op:
	default:
		s.logger.Printf("outcome store queue full, dropping row")
	}
}

func (s *Store) runWriter() {
	defer close(s.done)
	for op := range s.queue {
		if _, err := s.sqlDB.Exec(op.query, op.args...); err != nil {
			s.logger.Printf("outcome store write failed: %v", err)
		}
	}
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
