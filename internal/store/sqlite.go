package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/adialm/health-resilience-sim/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scenarios (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	baseline_year  INTEGER NOT NULL,
	access         REAL NOT NULL,
	funding        REAL NOT NULL,
	duration_years INTEGER NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_modified  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS interventions (
	scenario_id TEXT NOT NULL REFERENCES scenarios(id),
	id          TEXT NOT NULL,
	position    INTEGER NOT NULL,
	type        TEXT NOT NULL,
	name        TEXT NOT NULL,
	district_id TEXT NOT NULL DEFAULT '',
	location    BLOB,
	parameters  TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (scenario_id, id)
);

CREATE TABLE IF NOT EXISTS results (
	id            TEXT PRIMARY KEY,
	scenario_id   TEXT NOT NULL REFERENCES scenarios(id),
	policy        TEXT NOT NULL,
	interventions INTEGER NOT NULL,
	snapshot      TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scenarios_last_modified ON scenarios(last_modified);
CREATE INDEX IF NOT EXISTS idx_interventions_scenario ON interventions(scenario_id, position);
CREATE INDEX IF NOT EXISTS idx_results_scenario ON results(scenario_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateScenario(ctx context.Context, sc model.Scenario) error {
	return s.inTx(ctx, "create scenario", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO scenarios (id, name, description, baseline_year, access, funding, duration_years, created_at, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
			sc.ID, sc.Name, sc.Description, sc.BaselineYear,
			sc.Policy.Access, sc.Policy.Funding, sc.Policy.DurationYears,
			sc.CreatedAt.UTC(), sc.LastModified.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert scenario %s", sc.ID)
		}
		if n, err := res.RowsAffected(); err != nil {
			return eris.Wrap(err, "sqlite: rows affected")
		} else if n == 0 {
			return eris.Wrapf(ErrExists, "scenario %s", sc.ID)
		}
		return s.insertInterventions(ctx, tx, sc)
	})
}

func (s *SQLiteStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	var sc model.Scenario
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, baseline_year, access, funding, duration_years, created_at, last_modified
		 FROM scenarios WHERE id = ?`,
		id,
	).Scan(&sc.ID, &sc.Name, &sc.Description, &sc.BaselineYear,
		&sc.Policy.Access, &sc.Policy.Funding, &sc.Policy.DurationYears,
		&sc.CreatedAt, &sc.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "scenario %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scenario %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, name, district_id, location, parameters
		 FROM interventions WHERE scenario_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list interventions of %s", id)
	}
	defer rows.Close()

	sc.Interventions = []model.Intervention{}
	for rows.Next() {
		var iv model.Intervention
		var typ, params string
		var loc []byte
		if err := rows.Scan(&iv.ID, &typ, &iv.Name, &iv.Location.DistrictID, &loc, &params); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan intervention")
		}
		if err := decodeIntervention(&iv, typ, loc, []byte(params)); err != nil {
			return nil, err
		}
		sc.Interventions = append(sc.Interventions, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list interventions iterate")
	}
	return &sc, nil
}

func (s *SQLiteStore) ListScenarios(ctx context.Context, filter ScenarioFilter) ([]ScenarioSummary, error) {
	query := `SELECT s.id, s.name, s.description, s.access, s.funding, s.duration_years, s.last_modified,
		(SELECT COUNT(*) FROM interventions i WHERE i.scenario_id = s.id)
		FROM scenarios s ORDER BY s.last_modified DESC, s.id LIMIT ?`
	args := []any{listLimit(filter.Limit)}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scenarios")
	}
	defer rows.Close()

	var out []ScenarioSummary
	for rows.Next() {
		var sum ScenarioSummary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Description,
			&sum.Policy.Access, &sum.Policy.Funding, &sum.Policy.DurationYears,
			&sum.LastModified, &sum.Interventions); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scenario")
		}
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list scenarios iterate")
}

func (s *SQLiteStore) SaveScenario(ctx context.Context, sc model.Scenario) error {
	return s.inTx(ctx, "save scenario", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE scenarios SET name = ?, description = ?, baseline_year = ?, access = ?, funding = ?,
			 duration_years = ?, last_modified = ? WHERE id = ?`,
			sc.Name, sc.Description, sc.BaselineYear,
			sc.Policy.Access, sc.Policy.Funding, sc.Policy.DurationYears,
			sc.LastModified.UTC(), sc.ID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: update scenario %s", sc.ID)
		}
		if err := checkRowsAffected(res, "scenario", sc.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM interventions WHERE scenario_id = ?`, sc.ID); err != nil {
			return eris.Wrapf(err, "sqlite: clear interventions of %s", sc.ID)
		}
		return s.insertInterventions(ctx, tx, sc)
	})
}

func (s *SQLiteStore) DeleteScenario(ctx context.Context, id string) error {
	return s.inTx(ctx, "delete scenario", func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM results WHERE scenario_id = ?`,
			`DELETE FROM interventions WHERE scenario_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return eris.Wrapf(err, "sqlite: delete children of %s", id)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
		if err != nil {
			return eris.Wrapf(err, "sqlite: delete scenario %s", id)
		}
		return checkRowsAffected(res, "scenario", id)
	})
}

func (s *SQLiteStore) SaveResult(ctx context.Context, scenarioID string, p model.Policy, interventions int, snap model.Snapshot) (*model.Result, error) {
	r, policyJSON, snapJSON, err := newResult(uuid.New().String(), scenarioID, p, interventions, snap, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results (id, scenario_id, policy, interventions, snapshot, created_at)
		 SELECT ?, ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM scenarios WHERE id = ?)`,
		r.ID, scenarioID, string(policyJSON), interventions, string(snapJSON), r.CreatedAt, scenarioID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert result for %s", scenarioID)
	}
	if err := checkRowsAffected(res, "scenario", scenarioID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStore) ListResults(ctx context.Context, scenarioID string, limit int) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scenario_id, policy, interventions, snapshot, created_at
		 FROM results WHERE scenario_id = ? ORDER BY created_at DESC LIMIT ?`,
		scenarioID, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list results of %s", scenarioID)
	}
	defer rows.Close()

	var out []model.Result
	for rows.Next() {
		var r model.Result
		var policyJSON, snapJSON string
		if err := rows.Scan(&r.ID, &r.ScenarioID, &policyJSON, &r.Interventions, &snapJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		if err := decodeResult(&r, []byte(policyJSON), []byte(snapJSON)); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

// helpers

func (s *SQLiteStore) inTx(ctx context.Context, action string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s: begin", action)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return eris.Wrapf(tx.Commit(), "sqlite: %s: commit", action)
}

func (s *SQLiteStore) insertInterventions(ctx context.Context, tx *sql.Tx, sc model.Scenario) error {
	rows, err := interventionRows(sc)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO interventions (scenario_id, id, position, type, name, district_id, location, parameters)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare intervention insert")
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert intervention %v", row[1])
		}
	}
	return nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}
