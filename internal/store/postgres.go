package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/adialm/health-resilience-sim/internal/db"
	"github.com/adialm/health-resilience-sim/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool and connect retry tuning.
type PoolConfig struct {
	MaxConns         int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns         int32 `yaml:"min_conns" mapstructure:"min_conns"`
	ConnectAttempts  int   `yaml:"connect_attempts" mapstructure:"connect_attempts"`
	ConnectBackoffMS int   `yaml:"connect_backoff_ms" mapstructure:"connect_backoff_ms"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hottest read paths.
var preparedStatements = map[string]string{
	"get_scenario":       sqlGetScenario,
	"list_interventions": sqlListInterventions,
	"list_results":       sqlListResults,
}

const (
	sqlGetScenario = `SELECT id, name, description, baseline_year, access, funding, duration_years, created_at, last_modified
		FROM scenarios WHERE id = $1`
	sqlListInterventions = `SELECT id, type, name, district_id, location, parameters
		FROM interventions WHERE scenario_id = $1 ORDER BY position`
	sqlListResults = `SELECT id, scenario_id, policy, interventions, snapshot, created_at
		FROM results WHERE scenario_id = $1 ORDER BY created_at DESC LIMIT $2`
)

// scenarioInsert is built once from the scenario column list.
var scenarioInsert = mustUpsertSQL(db.UpsertConfig{
	Table: "scenarios",
	Columns: []string{
		"id", "name", "description", "baseline_year", "access", "funding",
		"duration_years", "created_at", "last_modified",
	},
	ConflictKeys: []string{"id"},
	UpdateCols:   []string{},
})

func mustUpsertSQL(cfg db.UpsertConfig) string {
	q, err := db.UpsertSQL(cfg)
	if err != nil {
		panic(err)
	}
	return q
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scenarios (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	baseline_year  INTEGER NOT NULL,
	access         DOUBLE PRECISION NOT NULL,
	funding        DOUBLE PRECISION NOT NULL,
	duration_years INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_modified  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS interventions (
	scenario_id TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	position    INTEGER NOT NULL,
	type        TEXT NOT NULL,
	name        TEXT NOT NULL,
	district_id TEXT NOT NULL DEFAULT '',
	location    BYTEA,
	parameters  JSONB NOT NULL DEFAULT '{}',
	PRIMARY KEY (scenario_id, id)
);

CREATE TABLE IF NOT EXISTS results (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	scenario_id   TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
	policy        JSONB NOT NULL,
	interventions INTEGER NOT NULL,
	snapshot      JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scenarios_last_modified ON scenarios(last_modified DESC);
CREATE INDEX IF NOT EXISTS idx_interventions_scenario ON interventions(scenario_id, position);
CREATE INDEX IF NOT EXISTS idx_results_scenario ON results(scenario_id, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateScenario(ctx context.Context, sc model.Scenario) error {
	return s.inTx(ctx, "create scenario", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, scenarioInsert,
			sc.ID, sc.Name, sc.Description, sc.BaselineYear,
			sc.Policy.Access, sc.Policy.Funding, sc.Policy.DurationYears,
			sc.CreatedAt.UTC(), sc.LastModified.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert scenario %s", sc.ID)
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrExists, "scenario %s", sc.ID)
		}
		return copyInterventions(ctx, tx, sc)
	})
}

func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	var sc model.Scenario
	err := s.pool.QueryRow(ctx, sqlGetScenario, id).Scan(
		&sc.ID, &sc.Name, &sc.Description, &sc.BaselineYear,
		&sc.Policy.Access, &sc.Policy.Funding, &sc.Policy.DurationYears,
		&sc.CreatedAt, &sc.LastModified,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "scenario %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scenario %s", id)
	}

	rows, err := s.pool.Query(ctx, sqlListInterventions, id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list interventions of %s", id)
	}
	defer rows.Close()

	sc.Interventions = []model.Intervention{}
	for rows.Next() {
		var iv model.Intervention
		var typ string
		var loc, params []byte
		if err := rows.Scan(&iv.ID, &typ, &iv.Name, &iv.Location.DistrictID, &loc, &params); err != nil {
			return nil, eris.Wrap(err, "postgres: scan intervention")
		}
		if err := decodeIntervention(&iv, typ, loc, params); err != nil {
			return nil, err
		}
		sc.Interventions = append(sc.Interventions, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list interventions iterate")
	}
	return &sc, nil
}

func (s *PostgresStore) ListScenarios(ctx context.Context, filter ScenarioFilter) ([]ScenarioSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.name, s.description, s.access, s.funding, s.duration_years, s.last_modified,
		 (SELECT COUNT(*) FROM interventions i WHERE i.scenario_id = s.id)
		 FROM scenarios s ORDER BY s.last_modified DESC, s.id LIMIT $1 OFFSET $2`,
		listLimit(filter.Limit), max(filter.Offset, 0),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scenarios")
	}
	defer rows.Close()

	var out []ScenarioSummary
	for rows.Next() {
		var sum ScenarioSummary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Description,
			&sum.Policy.Access, &sum.Policy.Funding, &sum.Policy.DurationYears,
			&sum.LastModified, &sum.Interventions); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scenario")
		}
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list scenarios iterate")
}

func (s *PostgresStore) SaveScenario(ctx context.Context, sc model.Scenario) error {
	return s.inTx(ctx, "save scenario", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE scenarios SET name = $1, description = $2, baseline_year = $3, access = $4, funding = $5,
			 duration_years = $6, last_modified = $7 WHERE id = $8`,
			sc.Name, sc.Description, sc.BaselineYear,
			sc.Policy.Access, sc.Policy.Funding, sc.Policy.DurationYears,
			sc.LastModified.UTC(), sc.ID,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: update scenario %s", sc.ID)
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrNotFound, "scenario %s", sc.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM interventions WHERE scenario_id = $1`, sc.ID); err != nil {
			return eris.Wrapf(err, "postgres: clear interventions of %s", sc.ID)
		}
		return copyInterventions(ctx, tx, sc)
	})
}

func (s *PostgresStore) DeleteScenario(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scenarios WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete scenario %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "scenario %s", id)
	}
	return nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, scenarioID string, p model.Policy, interventions int, snap model.Snapshot) (*model.Result, error) {
	r, policyJSON, snapJSON, err := newResult(uuid.New().String(), scenarioID, p, interventions, snap, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO results (id, scenario_id, policy, interventions, snapshot, created_at)
		 SELECT $1, $2, $3, $4, $5, $6 WHERE EXISTS (SELECT 1 FROM scenarios WHERE id = $2)`,
		r.ID, scenarioID, policyJSON, interventions, snapJSON, r.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert result for %s", scenarioID)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Wrapf(ErrNotFound, "scenario %s", scenarioID)
	}
	return r, nil
}

func (s *PostgresStore) ListResults(ctx context.Context, scenarioID string, limit int) ([]model.Result, error) {
	rows, err := s.pool.Query(ctx, sqlListResults, scenarioID, listLimit(limit))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list results of %s", scenarioID)
	}
	defer rows.Close()

	var out []model.Result
	for rows.Next() {
		var r model.Result
		var policyJSON, snapJSON []byte
		if err := rows.Scan(&r.ID, &r.ScenarioID, &policyJSON, &r.Interventions, &snapJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		if err := decodeResult(&r, policyJSON, snapJSON); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list results iterate")
}

// helpers

func (s *PostgresStore) inTx(ctx context.Context, action string, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: %s: begin", action)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: %s: commit", action)
}

func copyInterventions(ctx context.Context, tx pgx.Tx, sc model.Scenario) error {
	rows, err := interventionRows(sc)
	if err != nil {
		return err
	}
	if _, err := db.CopyFrom(ctx, tx, "interventions", interventionColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy interventions of %s", sc.ID)
	}
	return nil
}
