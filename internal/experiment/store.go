package experiment

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/amankumarsingh77/bow_bench/config"
)

// RunRecord is one persisted timing measurement.
type RunRecord struct {
	RunID      string  `db:"run_id"`
	Mode       string  `db:"mode"`
	Workers    int     `db:"workers"`
	Documents  int     `db:"documents"`
	VocabTerms int     `db:"vocab_terms"`
	ElapsedMs  float64 `db:"elapsed_ms"`
}

// RunSaver is the runner's persistence seam. Store satisfies it against
// Postgres; tests satisfy it with an in-memory fake.
type RunSaver interface {
	SaveRun(run RunRecord) error
}

// Store persists experiment timings to Postgres. It is optional: when no
// DSN is configured the runner is handed a nil saver and skips persistence.
type Store struct {
	conn *sqlx.DB
}

func NewStore(cfg *config.ResultsConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("results DSN is empty in config")
	}
	conn, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("db connection error :%v", err)
	}
	if _, err := conn.Exec(createRunsTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare the runs table: %w", err)
	}
	return &Store{
		conn: conn,
	}, nil
}

func (s *Store) SaveRun(run RunRecord) error {
	_, err := s.conn.Exec(insertRun,
		run.RunID, run.Mode, run.Workers, run.Documents, run.VocabTerms, run.ElapsedMs)
	if err != nil {
		return fmt.Errorf("failed to insert the run %s/%s: %w", run.RunID, run.Mode, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}
