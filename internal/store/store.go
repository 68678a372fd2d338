// Package store persists broadcast sessions and the chat/event logs
// recorded during them. SQLite is a single-writer engine, so every
// operation is serialized through one worker goroutine behind a command
// channel; callers block only for their own command's round trip.
package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS broadcast_sessions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  channel_id TEXT NOT NULL,
  title TEXT NOT NULL,
  started_at TEXT NOT NULL,
  ended_at TEXT
);
CREATE TABLE IF NOT EXISTS chat_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  broadcast_id INTEGER NOT NULL REFERENCES broadcast_sessions(id),
  user_id TEXT NOT NULL,
  user_label TEXT NOT NULL,
  message TEXT NOT NULL,
  message_type TEXT NOT NULL DEFAULT 'TEXT',
  is_admin INTEGER NOT NULL DEFAULT 0,
  ts TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS event_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  broadcast_id INTEGER NOT NULL REFERENCES broadcast_sessions(id),
  event_type TEXT NOT NULL,
  user_id TEXT NOT NULL DEFAULT '',
  payload TEXT NOT NULL DEFAULT '',
  ts TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_logs_broadcast ON chat_logs(broadcast_id, ts);
CREATE INDEX IF NOT EXISTS idx_event_logs_broadcast ON event_logs(broadcast_id, ts);`

// Store owns the database handle and its writer worker. Close stops the
// worker and closes the handle; commands issued after Close fail with
// errClosed.
type Store struct {
	db        *sql.DB
	commands  chan command
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type command struct {
	run   func(db *sql.DB) error
	reply chan error
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// The worker is the only writer; keep the pool at one connection so
	// reads cannot race a write transaction on a second handle.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set WAL")
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set busy_timeout")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	s := &Store{
		db:       db,
		commands: make(chan command),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.worker()
	return s, nil
}

func (s *Store) worker() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case cmd := <-s.commands:
			cmd.reply <- cmd.run(s.db)
		}
	}
}

var errClosed = errors.New("store closed")

func (s *Store) submit(ctx context.Context, run func(db *sql.DB) error) error {
	cmd := command{run: run, reply: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return errClosed
	case s.commands <- cmd:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errClosed
	case err := <-cmd.reply:
		return err
	}
}

// Close shuts the worker down and closes the database. An in-flight
// command finishes first.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
	return errors.Wrap(s.db.Close(), "close sqlite")
}

// CreateBroadcastSession inserts a session row and returns its id.
func (s *Store) CreateBroadcastSession(ctx context.Context, channelID, title string, startedAt time.Time) (int64, error) {
	var id int64
	err := s.submit(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO broadcast_sessions (channel_id, title, started_at) VALUES (?, ?, ?)`,
			channelID, title, fmtTime(startedAt))
		if err != nil {
			return errors.Wrap(err, "insert session")
		}
		id, err = res.LastInsertId()
		return errors.Wrap(err, "session id")
	})
	return id, err
}

// EndBroadcastSession stamps the session's end time.
func (s *Store) EndBroadcastSession(ctx context.Context, broadcastID int64, endedAt time.Time) error {
	return s.submit(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`UPDATE broadcast_sessions SET ended_at = ? WHERE id = ?`,
			fmtTime(endedAt), broadcastID)
		return errors.Wrap(err, "end session")
	})
}

// InsertChatLogs writes the batch inside one transaction: all rows land
// or none do, so a retried batch cannot half-apply.
func (s *Store) InsertChatLogs(ctx context.Context, rows []ChatLog) error {
	if len(rows) == 0 {
		return nil
	}
	return s.submit(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "begin chat batch")
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO chat_logs (broadcast_id, user_id, user_label, message, message_type, is_admin, ts)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "prepare chat insert")
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				r.BroadcastID, r.UserID, r.UserLabel, r.Message, r.MessageType, boolInt(r.IsAdmin), fmtTime(r.Timestamp)); err != nil {
				_ = tx.Rollback()
				return errors.Wrap(err, "insert chat log")
			}
		}
		return errors.Wrap(tx.Commit(), "commit chat batch")
	})
}

// InsertEventLogs writes the batch inside one transaction.
func (s *Store) InsertEventLogs(ctx context.Context, rows []EventLog) error {
	if len(rows) == 0 {
		return nil
	}
	return s.submit(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "begin event batch")
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO event_logs (broadcast_id, event_type, user_id, payload, ts) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrap(err, "prepare event insert")
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				r.BroadcastID, r.EventType, r.UserID, r.Payload, fmtTime(r.Timestamp)); err != nil {
				_ = tx.Rollback()
				return errors.Wrap(err, "insert event log")
			}
		}
		return errors.Wrap(tx.Commit(), "commit event batch")
	})
}

// CountChatLogs reports rows for a session; used by the status endpoint
// and tests.
func (s *Store) CountChatLogs(ctx context.Context, broadcastID int64) (int64, error) {
	var n int64
	err := s.submit(ctx, func(db *sql.DB) error {
		return errors.Wrap(
			db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_logs WHERE broadcast_id = ?`, broadcastID).Scan(&n),
			"count chat logs")
	})
	return n, err
}

// CountEventLogs reports event rows for a session.
func (s *Store) CountEventLogs(ctx context.Context, broadcastID int64) (int64, error) {
	var n int64
	err := s.submit(ctx, func(db *sql.DB) error {
		return errors.Wrap(
			db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_logs WHERE broadcast_id = ?`, broadcastID).Scan(&n),
			"count event logs")
	})
	return n, err
}

// Ping verifies the database handle is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.submit(ctx, func(db *sql.DB) error {
		return db.PingContext(ctx)
	})
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
