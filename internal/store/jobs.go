package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
)

const jobSelect = `
SELECT id, company_id, identity, fingerprint, title, raw_desc, clean_desc,
       location, remote, salary_low, salary_high, salary_currency, exp_years,
       skills, posted_at, source_url, scraped_at, status, absent_runs
FROM jobs`

func scanJob(r rowScanner) (domain.JobPosting, error) {
	var j domain.JobPosting
	var remote int
	var salLow, salHigh sql.NullInt64
	var salCur, postedAt sql.NullString
	var skillsJSON, scrapedAt, status string
	err := r.Scan(&j.ID, &j.CompanyID, &j.Identity, &j.Fingerprint, &j.Title,
		&j.RawDesc, &j.CleanDesc, &j.Location, &remote, &salLow, &salHigh, &salCur,
		&j.ExpYears, &skillsJSON, &postedAt, &j.SourceURL, &scrapedAt, &status,
		&j.AbsentRuns)
	if err != nil {
		return j, err
	}
	j.Remote = remote != 0
	if salLow.Valid {
		j.Salary = &domain.SalaryRange{Low: int(salLow.Int64), Currency: salCur.String}
		if salHigh.Valid {
			j.Salary.High = int(salHigh.Int64)
		}
	}
	_ = json.Unmarshal([]byte(skillsJSON), &j.Skills)
	if postedAt.Valid && postedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, postedAt.String); err == nil {
			j.PostedAt = &t
		}
	}
	j.ScrapedAt, _ = time.Parse(time.RFC3339, scrapedAt)
	j.Status = domain.JobStatus(status)
	return j, nil
}

// LookupJob resolves a posting identity to its current row, if any.
func LookupJob(ctx context.Context, db *sql.DB, identity string) (id int64, fingerprint string, scrapedAt time.Time, found bool, err error) {
	var ts string
	err = db.QueryRowContext(ctx, `
SELECT id, fingerprint, scraped_at FROM jobs WHERE identity = ? LIMIT 1;`, identity).
		Scan(&id, &fingerprint, &ts)
	if err == sql.ErrNoRows {
		return 0, "", time.Time{}, false, nil
	}
	if err != nil {
		return 0, "", time.Time{}, false, err
	}
	scrapedAt, _ = time.Parse(time.RFC3339, ts)
	return id, fingerprint, scrapedAt, true, nil
}

func jobArgs(j domain.JobPosting) []any {
	skillsB, _ := json.Marshal(emptyToList(j.Skills))
	var salLow, salHigh any
	var salCur any
	if j.Salary != nil {
		salLow, salHigh, salCur = j.Salary.Low, j.Salary.High, j.Salary.Currency
	}
	var postedAt any
	if j.PostedAt != nil {
		postedAt = j.PostedAt.UTC().Format(time.RFC3339)
	}
	return []any{
		j.CompanyID, j.Identity, j.Fingerprint, j.Title, j.RawDesc, j.CleanDesc,
		j.Location, boolInt(j.Remote), salLow, salHigh, salCur, j.ExpYears,
		string(skillsB), postedAt, j.SourceURL, j.ScrapedAt.UTC().Format(time.RFC3339),
	}
}

func InsertJob(ctx context.Context, db *sql.DB, j domain.JobPosting) (int64, error) {
	res, err := db.ExecContext(ctx, `
INSERT INTO jobs
  (company_id, identity, fingerprint, title, raw_desc, clean_desc, location,
   remote, salary_low, salary_high, salary_currency, exp_years, skills,
   posted_at, source_url, scraped_at, status, absent_runs)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,'open',0)
ON CONFLICT(identity) DO NOTHING;`, jobArgs(j)...)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// lost a race with a concurrent ingest of the same identity
		id, _, _, _, err := LookupJob(ctx, db, j.Identity)
		return id, err
	}
	return res.LastInsertId()
}

// TouchJob records an idempotent re-observation: only scraped_at advances and
// the absent streak resets.
func TouchJob(ctx context.Context, db *sql.DB, id int64, scrapedAt time.Time) error {
	_, err := db.ExecContext(ctx, `
UPDATE jobs SET scraped_at = ?, absent_runs = 0, status = 'open' WHERE id = ?;`,
		scrapedAt.UTC().Format(time.RFC3339), id)
	return err
}

// ReviseJob supersedes a posting whose content fingerprint changed: the prior
// fingerprint is kept as an audit link and the row is rewritten in place.
func ReviseJob(ctx context.Context, db *sql.DB, id int64, j domain.JobPosting, prevFingerprint string, prevScrapedAt time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
INSERT INTO job_revisions (job_id, prev_fingerprint, prev_scraped_at, superseded_at)
VALUES (?,?,?,?);`, id, prevFingerprint, prevScrapedAt.UTC().Format(time.RFC3339), now); err != nil {
		return err
	}

	args := append(jobArgs(j), id)
	if _, err := tx.ExecContext(ctx, `
UPDATE jobs SET
  company_id = ?, identity = ?, fingerprint = ?, title = ?, raw_desc = ?,
  clean_desc = ?, location = ?, remote = ?, salary_low = ?, salary_high = ?,
  salary_currency = ?, exp_years = ?, skills = ?, posted_at = ?, source_url = ?,
  scraped_at = ?, status = 'open', absent_runs = 0
WHERE id = ?;`, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func Revisions(ctx context.Context, db *sql.DB, jobID int64) ([]domain.Revision, error) {
	rows, err := db.QueryContext(ctx, `
SELECT job_id, prev_fingerprint, prev_scraped_at, superseded_at
FROM job_revisions WHERE job_id = ? ORDER BY id;`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Revision
	for rows.Next() {
		var r domain.Revision
		var prev, sup string
		if err := rows.Scan(&r.JobID, &r.PrevFingerprint, &prev, &sup); err != nil {
			return nil, err
		}
		r.PrevScrapedAt, _ = time.Parse(time.RFC3339, prev)
		r.SupersededAt, _ = time.Parse(time.RFC3339, sup)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkAbsent bumps the absent streak of every open posting of a company that
// the current scrape did not observe, and flips the ones that crossed the
// threshold to stale. Returns the newly stale job ids so the caller can drop
// them from the vector index.
func MarkAbsent(ctx context.Context, db *sql.DB, companyID int64, seen []int64, threshold int) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	notSeen := ""
	args := []any{companyID}
	if len(seen) > 0 {
		notSeen = ` AND id NOT IN (` + placeholders(len(seen)) + `)`
		for _, id := range seen {
			args = append(args, id)
		}
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE jobs SET absent_runs = absent_runs + 1
WHERE company_id = ? AND status = 'open'`+notSeen+`;`, args...); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
SELECT id FROM jobs WHERE company_id = ? AND status = 'open' AND absent_runs >= ?;`,
		companyID, threshold)
	if err != nil {
		return nil, err
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		stale = append(stale, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(stale) > 0 {
		args := make([]any, 0, len(stale))
		for _, id := range stale {
			args = append(args, id)
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = 'stale' WHERE id IN (`+placeholders(len(stale))+`);`, args...); err != nil {
			return nil, err
		}
	}
	return stale, tx.Commit()
}

func GetJob(ctx context.Context, db *sql.DB, id int64) (domain.JobPosting, error) {
	return scanJob(db.QueryRowContext(ctx, jobSelect+` WHERE id = ?;`, id))
}

// Candidate pairs a posting with its company's category for scoring.
type Candidate struct {
	Job      domain.JobPosting
	Category domain.CompanyCategory
}

// Candidates loads postings by id together with company categories. Missing
// or non-open ids are simply absent from the result.
func Candidates(ctx context.Context, db *sql.DB, ids []int64) (map[int64]Candidate, error) {
	out := make(map[int64]Candidate, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := db.QueryContext(ctx, `
SELECT j.id, j.company_id, j.identity, j.fingerprint, j.title, j.raw_desc,
       j.clean_desc, j.location, j.remote, j.salary_low, j.salary_high,
       j.salary_currency, j.exp_years, j.skills, j.posted_at, j.source_url,
       j.scraped_at, j.status, j.absent_runs, c.category
FROM jobs j JOIN companies c ON c.id = j.company_id
WHERE j.id IN (`+placeholders(len(ids))+`) AND j.status = 'open';`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var j domain.JobPosting
		var remote int
		var salLow, salHigh sql.NullInt64
		var salCur, postedAt sql.NullString
		var skillsJSON, scrapedAt, status, cat string
		if err := rows.Scan(&j.ID, &j.CompanyID, &j.Identity, &j.Fingerprint,
			&j.Title, &j.RawDesc, &j.CleanDesc, &j.Location, &remote, &salLow,
			&salHigh, &salCur, &j.ExpYears, &skillsJSON, &postedAt, &j.SourceURL,
			&scrapedAt, &status, &j.AbsentRuns, &cat); err != nil {
			return nil, err
		}
		j.Remote = remote != 0
		if salLow.Valid {
			j.Salary = &domain.SalaryRange{Low: int(salLow.Int64), Currency: salCur.String}
			if salHigh.Valid {
				j.Salary.High = int(salHigh.Int64)
			}
		}
		_ = json.Unmarshal([]byte(skillsJSON), &j.Skills)
		if postedAt.Valid && postedAt.String != "" {
			if t, err := time.Parse(time.RFC3339, postedAt.String); err == nil {
				j.PostedAt = &t
			}
		}
		j.ScrapedAt, _ = time.Parse(time.RFC3339, scrapedAt)
		j.Status = domain.JobStatus(status)
		out[j.ID] = Candidate{Job: j, Category: domain.CompanyCategory(cat)}
	}
	return out, rows.Err()
}

// OpenJobIDs returns ids of open postings in ascending order, the documented
// scan order for index rebuilds.
func OpenJobIDs(ctx context.Context, db *sql.DB) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM jobs WHERE status = 'open' ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func CountJobs(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs;`).Scan(&n)
	return n, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
