package store

import "database/sql"

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS companies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  identity TEXT NOT NULL,
  name TEXT NOT NULL,
  domain TEXT NOT NULL DEFAULT '',
  career_url TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  size_bucket TEXT NOT NULL DEFAULT '',
  funding_stage TEXT NOT NULL DEFAULT '',
  tech_stack TEXT NOT NULL DEFAULT '[]',
  source_urls TEXT NOT NULL DEFAULT '[]',
  low_confidence INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  empty_scrapes INTEGER NOT NULL DEFAULT 0,
  discovered_at TEXT NOT NULL,
  last_verified_at TEXT NOT NULL
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_identity ON companies(identity);`,

		`CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_id INTEGER NOT NULL REFERENCES companies(id),
  identity TEXT NOT NULL,
  fingerprint TEXT NOT NULL,
  title TEXT NOT NULL,
  raw_desc TEXT NOT NULL DEFAULT '',
  clean_desc TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  remote INTEGER NOT NULL DEFAULT 0,
  salary_low INTEGER,
  salary_high INTEGER,
  salary_currency TEXT,
  exp_years INTEGER NOT NULL DEFAULT 0,
  skills TEXT NOT NULL DEFAULT '[]',
  posted_at TEXT,
  source_url TEXT NOT NULL DEFAULT '',
  scraped_at TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  absent_runs INTEGER NOT NULL DEFAULT 0
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_identity ON jobs(identity);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company_id);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);`,

		`CREATE TABLE IF NOT EXISTS job_revisions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  job_id INTEGER NOT NULL REFERENCES jobs(id),
  prev_fingerprint TEXT NOT NULL,
  prev_scraped_at TEXT NOT NULL,
  superseded_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_job_revisions_job ON job_revisions(job_id);`,

		`CREATE TABLE IF NOT EXISTS embeddings (
  job_id INTEGER PRIMARY KEY REFERENCES jobs(id),
  model_version TEXT NOT NULL,
  dim INTEGER NOT NULL,
  vector BLOB NOT NULL,
  updated_at TEXT NOT NULL
);`,

		`CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'running',
  started_at TEXT NOT NULL,
  finished_at TEXT,
  stats TEXT NOT NULL DEFAULT '{}',
  error TEXT NOT NULL DEFAULT ''
);`,
	}

	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}
