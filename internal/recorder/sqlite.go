package recorder

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

var _ Recorder = (*SQLiteRecorder)(nil)

// SQLiteRecorder persists swarm runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id           TEXT PRIMARY KEY,
			created_at       INTEGER NOT NULL,
			strategy         TEXT,
			data_file        TEXT,
			bars             INTEGER,
			members          INTEGER,
			ever_picked      INTEGER,
			rebalances       INTEGER,
			avg_swarm_profit REAL,
			ensemble_profit  REAL,
			ensemble_max_dd  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,

		`CREATE TABLE IF NOT EXISTS member_stats (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			member         TEXT NOT NULL,
			picked         INTEGER,
			bars_picked    INTEGER,
			netprofit      REAL,
			avg            REAL,
			std            REAL,
			count          INTEGER,
			winrate        REAL,
			maxdd          REAL,
			avgbarsintrade REAL,
			avgmae         REAL,
			tradesmaxdd    REAL,
			costs_sum      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_member_stats_run ON member_stats(run_id)`,

		`CREATE TABLE IF NOT EXISTS picks (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			bar       INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			members   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_picks_run ON picks(run_id)`,

		`CREATE TABLE IF NOT EXISTS ensemble_equity (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			average   REAL,
			ensemble  REAL,
			picked    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equity_run ON ensemble_equity(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.Exec(`INSERT OR REPLACE INTO runs
		(run_id, created_at, strategy, data_file, bars, members, ever_picked, rebalances,
		 avg_swarm_profit, ensemble_profit, ensemble_max_dd)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		run.RunID, created.Unix(), run.Strategy, run.DataFile, run.Bars, run.Members,
		run.EverPicked, run.Rebalances, run.AvgSwarmProfit, run.EnsembleProfit, run.EnsembleMaxDD,
	)
	return err
}

func (r *SQLiteRecorder) RecordMemberStats(runID string, stats []MemberStat) error {
	return r.inTx(`INSERT INTO member_stats
		(run_id, member, picked, bars_picked, netprofit, avg, std, count, winrate, maxdd,
		 avgbarsintrade, avgmae, tradesmaxdd, costs_sum)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, len(stats), func(stmt *sql.Stmt, i int) error {
		m := stats[i]
		s := m.Stats
		_, err := stmt.Exec(runID, m.Name, m.Picked, m.BarsPicked, s.NetProfit, s.Avg, s.Std, s.Count,
			s.WinRate, s.MaxDD, s.AvgBarsInTrade, s.AvgMAE, s.TradesMaxDD, s.CostsSum)
		return err
	})
}

func (r *SQLiteRecorder) RecordPicks(runID string, picks []PickRecord) error {
	return r.inTx(`INSERT INTO picks (run_id, bar, timestamp, members) VALUES (?,?,?,?)`,
		len(picks), func(stmt *sql.Stmt, i int) error {
			p := picks[i]
			_, err := stmt.Exec(runID, p.Bar, p.Time.Unix(), strings.Join(p.Members, ";"))
			return err
		})
}

func (r *SQLiteRecorder) RecordEquity(runID string, points []EquityPoint) error {
	return r.inTx(`INSERT INTO ensemble_equity (run_id, timestamp, average, ensemble, picked) VALUES (?,?,?,?,?)`,
		len(points), func(stmt *sql.Stmt, i int) error {
			p := points[i]
			_, err := stmt.Exec(runID, p.Time.Unix(), p.Average, p.Ensemble, p.Picked)
			return err
		})
}

// inTx prepares query once and executes it n times inside one transaction
func (r *SQLiteRecorder) inTx(query string, n int, exec func(stmt *sql.Stmt, i int) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadRun reads a stored run back by id
func (r *SQLiteRecorder) LoadRun(runID string) (*RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		run     RunRecord
		created int64
	)
	err := r.db.QueryRow(`SELECT run_id, created_at, strategy, data_file, bars, members,
		ever_picked, rebalances, avg_swarm_profit, ensemble_profit, ensemble_max_dd
		FROM runs WHERE run_id = ?`, runID).Scan(
		&run.RunID, &created, &run.Strategy, &run.DataFile, &run.Bars, &run.Members,
		&run.EverPicked, &run.Rebalances, &run.AvgSwarmProfit, &run.EnsembleProfit, &run.EnsembleMaxDD,
	)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(created, 0)
	return &run, nil
}

// LoadPicks returns a run's rebalance selections in bar order
func (r *SQLiteRecorder) LoadPicks(runID string) ([]PickRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT bar, timestamp, members FROM picks WHERE run_id = ? ORDER BY bar`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PickRecord
	for rows.Next() {
		var (
			p       PickRecord
			ts      int64
			members string
		)
		if err := rows.Scan(&p.Bar, &ts, &members); err != nil {
			return nil, err
		}
		p.Time = time.Unix(ts, 0)
		if members != "" {
			p.Members = strings.Split(members, ";")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
