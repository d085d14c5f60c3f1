// Package journal keeps a SQLite log of processed turns.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Turn is one processed player input.
type Turn struct {
	ID        string
	Session   string
	Input     string
	Narrative string
	Method    string
	Rejected  bool
	Immediate []string
	Deferred  []string
	CreatedAt time.Time
}

type turnRow struct {
	ID        string `db:"id"`
	Session   string `db:"session"`
	Input     string `db:"input"`
	Narrative string `db:"narrative"`
	Method    string `db:"method"`
	Rejected  bool   `db:"rejected"`
	Immediate string `db:"immediate_json"`
	Deferred  string `db:"deferred_json"`
	CreatedAt int64  `db:"created_at"`
}

// DB wraps the journal database.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates the journal at path. ":memory:" gives a private
// in-memory journal.
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session TEXT NOT NULL,
		input TEXT NOT NULL,
		narrative TEXT NOT NULL,
		method TEXT NOT NULL,
		rejected INTEGER NOT NULL,
		immediate_json TEXT NOT NULL,
		deferred_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Record appends a turn.
func (db *DB) Record(ctx context.Context, t Turn) error {
	imm, err := json.Marshal(nonNil(t.Immediate))
	if err != nil {
		return err
	}
	def, err := json.Marshal(nonNil(t.Deferred))
	if err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	row := turnRow{
		ID:        t.ID,
		Session:   t.Session,
		Input:     t.Input,
		Narrative: t.Narrative,
		Method:    t.Method,
		Rejected:  t.Rejected,
		Immediate: string(imm),
		Deferred:  string(def),
		CreatedAt: t.CreatedAt.UnixMilli(),
	}
	_, err = db.conn.NamedExecContext(ctx, `
		INSERT INTO turns (id, session, input, narrative, method, rejected, immediate_json, deferred_json, created_at)
		VALUES (:id, :session, :input, :narrative, :method, :rejected, :immediate_json, :deferred_json, :created_at)`,
		row)
	if err != nil {
		return fmt.Errorf("record turn %s: %w", t.ID, err)
	}
	return nil
}

// Recent returns the latest turns of a session, newest first. A limit of
// zero or less returns every turn.
func (db *DB) Recent(ctx context.Context, session string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []turnRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT id, session, input, narrative, method, rejected, immediate_json, deferred_json, created_at
		FROM turns WHERE session = ? ORDER BY seq DESC LIMIT ?`,
		session, limit)
	if err != nil {
		return nil, err
	}

	turns := make([]Turn, 0, len(rows))
	for _, r := range rows {
		t := Turn{
			ID:        r.ID,
			Session:   r.Session,
			Input:     r.Input,
			Narrative: r.Narrative,
			Method:    r.Method,
			Rejected:  r.Rejected,
			CreatedAt: time.UnixMilli(r.CreatedAt),
		}
		if err := json.Unmarshal([]byte(r.Immediate), &t.Immediate); err != nil {
			return nil, fmt.Errorf("turn %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.Deferred), &t.Deferred); err != nil {
			return nil, fmt.Errorf("turn %s: %w", r.ID, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Count returns the number of turns recorded for a session.
func (db *DB) Count(ctx context.Context, session string) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM turns WHERE session = ?", session)
	return n, err
}

// SessionInfo summarizes one journaled session.
type SessionInfo struct {
	ID     string
	Turns  int
	LastAt time.Time
}

type sessionRow struct {
	Session string `db:"session"`
	Turns   int    `db:"turns"`
	LastAt  int64  `db:"last_at"`
}

// Sessions lists journaled sessions, most recently active first.
func (db *DB) Sessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []sessionRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT session, COUNT(*) AS turns, MAX(created_at) AS last_at
		FROM turns GROUP BY session ORDER BY MAX(seq) DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}

	sessions := make([]SessionInfo, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, SessionInfo{
			ID:     r.Session,
			Turns:  r.Turns,
			LastAt: time.UnixMilli(r.LastAt),
		})
	}
	return sessions, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
