// Package persistence stores session snapshots in sqlite so a restarted
// process can inspect past sessions. The live lifecycle stays in memory;
// snapshots are write-behind records, not the source of truth.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"maestro/pkg/decision"
	"maestro/pkg/logx"
	"maestro/pkg/proto"
	"maestro/pkg/session"
	"maestro/pkg/soul"
)

// ErrSnapshotNotFound means no snapshot exists for the id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	phase         TEXT NOT NULL,
	brief         TEXT NOT NULL DEFAULT '',
	soul_json     TEXT,
	decision_json TEXT,
	created_at    TIMESTAMP NOT NULL,
	last_activity TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`

// Snapshot is the persisted view of one session.
type Snapshot struct {
	ID           string
	Status       proto.SessionStatus
	Phase        proto.Phase
	Brief        string
	Soul         *soul.ProjectSoul
	Decision     *decision.Decision
	CreatedAt    time.Time
	LastActivity time.Time
}

// SnapshotOf captures the persistable state of a live session.
func SnapshotOf(s *session.Session) *Snapshot {
	return &Snapshot{
		ID:           s.ID(),
		Status:       s.Status(),
		Phase:        s.Engine().Phase(),
		Brief:        s.Engine().Brief(),
		Soul:         s.Soul(),
		Decision:     s.Decision(),
		CreatedAt:    s.CreatedAt(),
		LastActivity: s.LastActivity(),
	}
}

// Store is the sqlite-backed snapshot store.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db, logger: logx.NewLogger("persistence")}, nil
}

// Close closes the underlying database.
func (st *Store) Close() error {
	return st.db.Close()
}

// Save upserts a snapshot.
func (st *Store) Save(ctx context.Context, snap *Snapshot) error {
	soulJSON, err := marshalNullable(snap.Soul)
	if err != nil {
		return fmt.Errorf("failed to encode soul for %s: %w", snap.ID, err)
	}
	decisionJSON, err := marshalNullable(snap.Decision)
	if err != nil {
		return fmt.Errorf("failed to encode decision for %s: %w", snap.ID, err)
	}

	_, err = st.db.ExecContext(ctx, `
		INSERT INTO sessions (id, status, phase, brief, soul_json, decision_json, created_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			phase = excluded.phase,
			brief = excluded.brief,
			soul_json = excluded.soul_json,
			decision_json = excluded.decision_json,
			last_activity = excluded.last_activity`,
		snap.ID, string(snap.Status), string(snap.Phase), snap.Brief,
		soulJSON, decisionJSON, snap.CreatedAt.UTC(), snap.LastActivity.UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Load reads one snapshot by id.
func (st *Store) Load(ctx context.Context, id string) (*Snapshot, error) {
	row := st.db.QueryRowContext(ctx, `
		SELECT id, status, phase, brief, soul_json, decision_json, created_at, last_activity
		FROM sessions WHERE id = ?`, id)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}
	return snap, nil
}

// List returns all snapshots, most recently active first.
func (st *Store) List(ctx context.Context) ([]*Snapshot, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT id, status, phase, brief, soul_json, decision_json, created_at, last_activity
		FROM sessions ORDER BY last_activity DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// MarkStale flags every non-finished snapshot as expired. Run at startup: a
// restart means every previously live session is gone.
func (st *Store) MarkStale(ctx context.Context) (int64, error) {
	res, err := st.db.ExecContext(ctx, `
		UPDATE sessions SET status = ? WHERE status NOT IN (?, ?, ?)`,
		string(proto.SessionExpired),
		string(proto.SessionComplete), string(proto.SessionExpired), string(proto.SessionFailed))
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		st.logger.Info("marked %d stale session(s) expired", n)
	}
	return n, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scannable) (*Snapshot, error) {
	var (
		snap         Snapshot
		status       string
		phase        string
		soulJSON     sql.NullString
		decisionJSON sql.NullString
	)
	err := row.Scan(&snap.ID, &status, &phase, &snap.Brief,
		&soulJSON, &decisionJSON, &snap.CreatedAt, &snap.LastActivity)
	if err != nil {
		return nil, err
	}
	snap.Status = proto.SessionStatus(status)
	snap.Phase = proto.Phase(phase)

	if soulJSON.Valid && soulJSON.String != "" {
		var s soul.ProjectSoul
		if err := json.Unmarshal([]byte(soulJSON.String), &s); err != nil {
			return nil, fmt.Errorf("corrupt soul snapshot: %w", err)
		}
		snap.Soul = &s
	}
	if decisionJSON.Valid && decisionJSON.String != "" {
		var d decision.Decision
		if err := json.Unmarshal([]byte(decisionJSON.String), &d); err != nil {
			return nil, fmt.Errorf("corrupt decision snapshot: %w", err)
		}
		snap.Decision = &d
	}
	return &snap, nil
}

func marshalNullable(v any) (sql.NullString, error) {
	switch v := v.(type) {
	case *soul.ProjectSoul:
		if v == nil {
			return sql.NullString{}, nil
		}
	case *decision.Decision:
		if v == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
