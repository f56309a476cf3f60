// Package sqldb stores game results in SQLite.
package sqldb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bcspragu/Switchboard"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	game_id    TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	winner     TEXT NOT NULL,
	red        TEXT NOT NULL,
	blue       TEXT NOT NULL,
	turns      INTEGER NOT NULL,
	data       BLOB NOT NULL
);`

// DB implements switchboard.DB, backed by a SQLite database.
// NOTE: Since the database doesn't support concurrent writers, we don't
// actually hold the *sql.DB in this struct, we force all callers to get a
// handle via channels.
type DB struct {
	dbChan   chan func(*sql.DB)
	doneChan chan struct{}
	closed   chan error
	now      func() time.Time
}

// New creates a new *DB that is stored on disk at the given filename.
func New(fn string) (*DB, error) {
	sdb, err := sql.Open("sqlite3", fn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := sdb.Exec(schema); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	db := &DB{
		dbChan:   make(chan func(*sql.DB)),
		doneChan: make(chan struct{}),
		closed:   make(chan error, 1),
		now:      time.Now,
	}
	go db.run(sdb)
	return db, nil
}

// run handles all database calls, and ensures that only one thing is happening
// against the database at a time.
func (s *DB) run(sdb *sql.DB) {
	for {
		select {
		case dbFn := <-s.dbChan:
			dbFn(sdb)
		case <-s.doneChan:
			s.closed <- sdb.Close()
			return
		}
	}
}

func (s *DB) Close() error {
	close(s.doneChan)
	return <-s.closed
}

// do runs fn against the database and waits for it to finish.
func (s *DB) do(fn func(*sql.DB) error) error {
	errC := make(chan error, 1)
	s.dbChan <- func(sdb *sql.DB) {
		errC <- fn(sdb)
	}
	return <-errC
}

func (s *DB) SaveResult(r *switchboard.Result) error {
	dat, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	created := s.now().UnixNano()

	return s.do(func(sdb *sql.DB) error {
		_, err := sdb.Exec(`
INSERT INTO results (game_id, created_at, winner, red, blue, turns, data)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(game_id) DO UPDATE SET
	created_at = excluded.created_at,
	winner = excluded.winner,
	red = excluded.red,
	blue = excluded.blue,
	turns = excluded.turns,
	data = excluded.data`,
			r.GameID, created, r.Winner.String(), r.Red, r.Blue, r.Turns, dat)
		if err != nil {
			return fmt.Errorf("failed to save result %q: %w", r.GameID, err)
		}
		return nil
	})
}

func (s *DB) Result(gameID string) (*switchboard.GameRecord, error) {
	var rec *switchboard.GameRecord
	err := s.do(func(sdb *sql.DB) error {
		row := sdb.QueryRow(`SELECT created_at, data FROM results WHERE game_id = ?`, gameID)
		var err error
		rec, err = scanRecord(row)
		if errors.Is(err, sql.ErrNoRows) {
			return switchboard.ErrGameNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *DB) Results() ([]*switchboard.GameRecord, error) {
	var out []*switchboard.GameRecord
	err := s.do(func(sdb *sql.DB) error {
		rows, err := sdb.Query(`SELECT created_at, data FROM results ORDER BY created_at DESC, game_id`)
		if err != nil {
			return fmt.Errorf("failed to query results: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*switchboard.GameRecord, error) {
	var (
		created int64
		dat     []byte
	)
	if err := sc.Scan(&created, &dat); err != nil {
		return nil, err
	}
	var r switchboard.Result
	if err := json.Unmarshal(dat, &r); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &switchboard.GameRecord{Result: &r, CreatedAt: time.Unix(0, created).UTC()}, nil
}
