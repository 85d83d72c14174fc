// Package store is the durable local state of the daemon: the configured
// employee id, preference flags, and the active-session pair that crash
// recovery reconciles against the remote service.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hbeckers/punchd/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_session (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	attendance_id TEXT NOT NULL,
	started_at    TEXT NOT NULL
);
`

const (
	settingEmployeeID  = "employee_id"
	settingShowTimer   = "show_timer"
	settingAutoRestart = "auto_restart"
	settingDisplayMode = "display_mode"
)

type Store struct {
	db *sqlx.DB
}

func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc.org/sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY entirely for this single-process store.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `
		SELECT value FROM settings WHERE key = ?
	`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (s *Store) EmployeeID(ctx context.Context) (string, error) {
	return s.getSetting(ctx, settingEmployeeID)
}

func (s *Store) SetEmployeeID(ctx context.Context, id string) error {
	return s.setSetting(ctx, settingEmployeeID, id)
}

// ActiveSession returns the persisted session pair, or nil when none exists.
func (s *Store) ActiveSession(ctx context.Context) (*model.Session, error) {
	var row struct {
		AttendanceID string `db:"attendance_id"`
		StartedAt    string `db:"started_at"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT attendance_id, started_at FROM active_session WHERE id = 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	startedAt, err := time.Parse(time.RFC3339, row.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("parse persisted start time: %w", err)
	}

	return &model.Session{
		AttendanceID: row.AttendanceID,
		StartTime:    startedAt,
	}, nil
}

// SaveActiveSession persists the {attendanceId, startTime} pair. The single
// upsert keeps the pair atomic: there is never a row with only one half.
func (s *Store) SaveActiveSession(ctx context.Context, session model.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_session (id, attendance_id, started_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			attendance_id = excluded.attendance_id,
			started_at = excluded.started_at
	`, session.AttendanceID, session.StartTime.Format(time.RFC3339))
	return err
}

func (s *Store) ClearActiveSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM active_session WHERE id = 1
	`)
	return err
}

func (s *Store) boolSetting(ctx context.Context, key string, fallback bool) (bool, error) {
	value, err := s.getSetting(ctx, key)
	if err != nil {
		return fallback, err
	}
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return fallback, nil
	}
}

func (s *Store) setBoolSetting(ctx context.Context, key string, value bool) error {
	if value {
		return s.setSetting(ctx, key, "true")
	}
	return s.setSetting(ctx, key, "false")
}

func (s *Store) ShowTimer(ctx context.Context) (bool, error) {
	return s.boolSetting(ctx, settingShowTimer, true)
}

func (s *Store) SetShowTimer(ctx context.Context, value bool) error {
	return s.setBoolSetting(ctx, settingShowTimer, value)
}

func (s *Store) AutoRestart(ctx context.Context) (bool, error) {
	return s.boolSetting(ctx, settingAutoRestart, false)
}

func (s *Store) SetAutoRestart(ctx context.Context, value bool) error {
	return s.setBoolSetting(ctx, settingAutoRestart, value)
}

func (s *Store) DisplayMode(ctx context.Context) (model.DisplayMode, error) {
	value, err := s.getSetting(ctx, settingDisplayMode)
	if err != nil {
		return model.DisplayModeClock, err
	}
	mode := model.DisplayMode(value)
	if !model.ValidDisplayMode(mode) {
		return model.DisplayModeClock, nil
	}
	return mode, nil
}

func (s *Store) SetDisplayMode(ctx context.Context, mode model.DisplayMode) error {
	return s.setSetting(ctx, settingDisplayMode, string(mode))
}
