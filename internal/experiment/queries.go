package experiment

const createRunsTable = `
CREATE TABLE IF NOT EXISTS experiment_runs (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT             NOT NULL,
	mode        TEXT             NOT NULL,
	workers     INT              NOT NULL,
	documents   INT              NOT NULL,
	vocab_terms INT              NOT NULL,
	elapsed_ms  DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ      NOT NULL DEFAULT now()
)`

const insertRun = `
INSERT INTO experiment_runs (run_id, mode, workers, documents, vocab_terms, elapsed_ms)
VALUES ($1, $2, $3, $4, $5, $6)`
