package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/pump"
	"github.com/okian/pumpmatch/pkg/metrics"
)

const (
	defaultBusyTimeout  = 5 * time.Second
	defaultMaxOpenConns = 4
	memoryPath          = ":memory:"
)

const schema = `
CREATE TABLE IF NOT EXISTS pumps (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	rated_flow REAL NOT NULL,
	rated_head REAL NOT NULL,
	min_flow REAL NOT NULL DEFAULT 0,
	max_flow REAL NOT NULL DEFAULT 0,
	max_head REAL NOT NULL DEFAULT 0,
	rated_power REAL NOT NULL DEFAULT 0,
	rated_efficiency REAL NOT NULL DEFAULT 0,
	applications_json TEXT NOT NULL DEFAULT '[]',
	fluids_json TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS performance_points (
	pump_id TEXT NOT NULL,
	flow_rate REAL NOT NULL,
	head REAL NOT NULL,
	power REAL,
	efficiency REAL,
	PRIMARY KEY (pump_id, flow_rate)
);

CREATE INDEX IF NOT EXISTS idx_pumps_type ON pumps(type);
`

// pumpRow is the sqlite shape of a pump.Spec.
type pumpRow struct {
	Seq             int64   `db:"seq"`
	ID              string  `db:"id"`
	Name            string  `db:"name"`
	Type            string  `db:"type"`
	RatedFlow       float64 `db:"rated_flow"`
	RatedHead       float64 `db:"rated_head"`
	MinFlow         float64 `db:"min_flow"`
	MaxFlow         float64 `db:"max_flow"`
	MaxHead         float64 `db:"max_head"`
	RatedPower      float64 `db:"rated_power"`
	RatedEfficiency float64 `db:"rated_efficiency"`
	Applications    string  `db:"applications_json"`
	Fluids          string  `db:"fluids_json"`
}

func (r *pumpRow) spec() (pump.Spec, error) {
	s := pump.Spec{
		ID:              r.ID,
		Name:            r.Name,
		Type:            r.Type,
		RatedFlow:       r.RatedFlow,
		RatedHead:       r.RatedHead,
		MinFlow:         r.MinFlow,
		MaxFlow:         r.MaxFlow,
		MaxHead:         r.MaxHead,
		RatedPower:      r.RatedPower,
		RatedEfficiency: r.RatedEfficiency,
	}
	if err := json.Unmarshal([]byte(r.Applications), &s.Applications); err != nil {
		return pump.Spec{}, fmt.Errorf("decode applications of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Fluids), &s.Fluids); err != nil {
		return pump.Spec{}, fmt.Errorf("decode fluids of %s: %w", r.ID, err)
	}
	return s, nil
}

func rowOf(s *pump.Spec) (pumpRow, error) {
	apps, err := json.Marshal(nonNil(s.Applications))
	if err != nil {
		return pumpRow{}, err
	}
	fluids, err := json.Marshal(nonNil(s.Fluids))
	if err != nil {
		return pumpRow{}, err
	}
	return pumpRow{
		ID:              s.ID,
		Name:            s.Name,
		Type:            s.Type,
		RatedFlow:       s.RatedFlow,
		RatedHead:       s.RatedHead,
		MinFlow:         s.MinFlow,
		MaxFlow:         s.MaxFlow,
		MaxHead:         s.MaxHead,
		RatedPower:      s.RatedPower,
		RatedEfficiency: s.RatedEfficiency,
		Applications:    string(apps),
		Fluids:          string(fluids),
	}, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// SQLiteStore implements Store on a sqlite database through sqlx.
type SQLiteStore struct {
	db           *sqlx.DB
	busyTimeout  time.Duration
	maxOpenConns int
}

// Open opens or creates the catalog database at path and migrates it.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout:  defaultBusyTimeout,
		maxOpenConns: defaultMaxOpenConns,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := path
	if path != memoryPath {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, s.busyTimeout.Milliseconds())
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	if path == memoryPath {
		s.maxOpenConns = 1
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	s.db = db

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// Upsert inserts spec or updates it in place, keeping its catalog position.
// Stored points of the pump are dropped.
func (s *SQLiteStore) Upsert(ctx context.Context, spec pump.Spec) error {
	defer observe("upsert", time.Now())

	if spec.ID == "" {
		return fmt.Errorf("%w: id is required", pump.ErrInvalidPump)
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	row, err := rowOf(&spec)
	if err != nil {
		return fmt.Errorf("encode pump %s: %w", spec.ID, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO pumps (id, name, type, rated_flow, rated_head, min_flow, max_flow, max_head,
			rated_power, rated_efficiency, applications_json, fluids_json)
		VALUES (:id, :name, :type, :rated_flow, :rated_head, :min_flow, :max_flow, :max_head,
			:rated_power, :rated_efficiency, :applications_json, :fluids_json)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			rated_flow = excluded.rated_flow,
			rated_head = excluded.rated_head,
			min_flow = excluded.min_flow,
			max_flow = excluded.max_flow,
			max_head = excluded.max_head,
			rated_power = excluded.rated_power,
			rated_efficiency = excluded.rated_efficiency,
			applications_json = excluded.applications_json,
			fluids_json = excluded.fluids_json`, row)
	if err != nil {
		return fmt.Errorf("upsert pump %s: %w", spec.ID, err)
	}
	// Points sampled from the previous spec no longer describe the pump.
	if _, err := tx.ExecContext(ctx, `DELETE FROM performance_points WHERE pump_id = ?`, spec.ID); err != nil {
		return fmt.Errorf("clear points of %s: %w", spec.ID, err)
	}
	return tx.Commit()
}

// Get returns the pump with id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (pump.Spec, error) {
	defer observe("get", time.Now())

	var row pumpRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM pumps WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return pump.Spec{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return pump.Spec{}, fmt.Errorf("get pump %s: %w", id, err)
	}
	return row.spec()
}

// List returns pumps matching f in insertion order.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]pump.Spec, error) {
	defer observe("list", time.Now())

	query := `SELECT * FROM pumps`
	var args []any
	if t := strings.TrimSpace(f.Type); t != "" {
		query += ` WHERE type = ? COLLATE NOCASE`
		args = append(args, t)
	}
	query += ` ORDER BY seq`

	var rows []pumpRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list pumps: %w", err)
	}
	specs := make([]pump.Spec, 0, len(rows))
	for i := range rows {
		spec, err := rows[i].spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Delete removes a pump and its points in one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	defer observe("delete", time.Now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM pumps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pump %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM performance_points WHERE pump_id = ?`, id); err != nil {
		return fmt.Errorf("delete points of %s: %w", id, err)
	}
	return tx.Commit()
}

// Count returns the catalog size.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM pumps`); err != nil {
		return 0, fmt.Errorf("count pumps: %w", err)
	}
	return n, nil
}

// ReplacePoints deletes and rewrites the points of pumpID in one transaction.
func (s *SQLiteStore) ReplacePoints(ctx context.Context, pumpID string, points []curve.Point) error {
	defer observe("replace_points", time.Now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM pumps WHERE id = ?`, pumpID); err != nil {
		return fmt.Errorf("check pump %s: %w", pumpID, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, pumpID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM performance_points WHERE pump_id = ?`, pumpID); err != nil {
		return fmt.Errorf("clear points of %s: %w", pumpID, err)
	}
	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO performance_points (pump_id, flow_rate, head, power, efficiency)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, pumpID, p.Flow, p.Head, p.Power, p.Efficiency); err != nil {
			return fmt.Errorf("insert point %.3f of %s: %w", p.Flow, pumpID, err)
		}
	}
	return tx.Commit()
}

// Points returns the stored points of pumpID by ascending flow.
func (s *SQLiteStore) Points(ctx context.Context, pumpID string) ([]curve.Point, error) {
	defer observe("points", time.Now())

	var points []curve.Point
	err := s.db.SelectContext(ctx, &points, `
		SELECT flow_rate, head, power, efficiency FROM performance_points
		WHERE pump_id = ? ORDER BY flow_rate`, pumpID)
	if err != nil {
		return nil, fmt.Errorf("load points of %s: %w", pumpID, err)
	}
	return points, nil
}
