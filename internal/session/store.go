package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Store keeps sessions in SQLite. The full session is stored as JSON; id,
// status and creation time are columns for lookup, ordering and pruning.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. An empty path
// gives a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "session: open database")
	}
	if path == "" {
		// Every connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "session: connect")
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "session: init schema")
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces sess.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "session: marshal")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, status, created_at, data) VALUES (?, ?, ?, ?)`,
		sess.ID, string(sess.Status), sess.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return errors.Wrapf(err, "session: save %s", sess.ID)
	}
	return nil
}

// Get returns the session with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "session: get %s", id)
	}
	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, errors.Wrapf(err, "session: decode %s", id)
	}
	return &sess, nil
}

// Exists reports whether id is stored, without decoding it.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, errors.Wrapf(err, "session: exists %s", id)
	}
	return n > 0, nil
}

// List returns all sessions, newest first.
func (s *Store) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM sessions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "session: list")
	}
	defer rows.Close()

	out := make([]*Session, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(err, "session: scan")
		}
		var sess Session
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			return nil, errors.Wrap(err, "session: decode")
		}
		out = append(out, &sess)
	}
	return out, errors.Wrap(rows.Err(), "session: list")
}

// Delete removes the session with id, or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "session: delete %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

// Clear removes every session and returns how many there were.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, errors.Wrap(err, "session: clear")
	}
	return res.RowsAffected()
}

// PruneBefore removes sessions created before t and returns their ids.
func (s *Store) PruneBefore(ctx context.Context, t time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `DELETE FROM sessions WHERE created_at < ? RETURNING id`, t.UnixNano())
	if err != nil {
		return nil, errors.Wrap(err, "session: prune")
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "session: prune")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "session: prune")
}
