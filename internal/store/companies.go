package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/normalize"
)

// MergeOutcome reports how a discovery candidate landed in the registry.
type MergeOutcome struct {
	CompanyID        int64
	Created          bool
	CategoryConflict bool // candidate carried a category that disagreed with the stored one
}

// UpsertCompany is the conditional "insert if absent, else merge" write keyed
// by company identity. Merge rules: tag/url sets are unioned, scalar fields are
// filled only when previously empty, last_verified_at advances. The whole
// thing runs in one transaction so two concurrent discoveries of the same
// identity cannot create two rows.
func UpsertCompany(ctx context.Context, db *sql.DB, c domain.Company) (MergeOutcome, error) {
	var out MergeOutcome

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return out, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if c.DiscoveredAt.IsZero() {
		c.DiscoveredAt = now
	}
	if c.LastVerifiedAt.IsZero() {
		c.LastVerifiedAt = now
	}
	tagsB, _ := json.Marshal(emptyToList(c.TechStack))
	urlsB, _ := json.Marshal(emptyToList(c.SourceURLs))

	res, err := tx.ExecContext(ctx, `
INSERT INTO companies
  (identity, name, domain, career_url, category, size_bucket, funding_stage,
   tech_stack, source_urls, low_confidence, active, empty_scrapes,
   discovered_at, last_verified_at)
VALUES (?,?,?,?,?,?,?,?,?,?,1,0,?,?)
ON CONFLICT(identity) DO NOTHING;`,
		c.Identity, c.Name, c.Domain, c.CareerURL, string(c.Category), c.SizeBucket,
		c.FundingStage, string(tagsB), string(urlsB), boolInt(c.LowConfidence),
		c.DiscoveredAt.Format(time.RFC3339), c.LastVerifiedAt.Format(time.RFC3339),
	)
	if err != nil {
		return out, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		id, _ := res.LastInsertId()
		out.CompanyID = id
		out.Created = true
		return out, tx.Commit()
	}

	// existing row: merge attributes
	existing, err := scanCompany(tx.QueryRowContext(ctx,
		companySelect+` WHERE identity = ?;`, c.Identity))
	if err != nil {
		return out, err
	}

	merged := existing
	if merged.Domain == "" {
		merged.Domain = c.Domain
	}
	if merged.CareerURL == "" {
		merged.CareerURL = c.CareerURL
	}
	if merged.SizeBucket == "" {
		merged.SizeBucket = c.SizeBucket
	}
	if merged.FundingStage == "" {
		merged.FundingStage = c.FundingStage
	}
	if merged.Category == domain.CategoryUnknown {
		merged.Category = c.Category
	} else if c.Category != domain.CategoryUnknown && c.Category != merged.Category {
		out.CategoryConflict = true
	}
	// a domain-backed re-discovery upgrades a name-only identity's confidence
	if merged.LowConfidence && !c.LowConfidence {
		merged.LowConfidence = false
	}
	merged.TechStack = normalize.UnionTags(merged.TechStack, c.TechStack)
	merged.SourceURLs = unionStrings(merged.SourceURLs, c.SourceURLs)
	merged.LastVerifiedAt = now

	mTagsB, _ := json.Marshal(emptyToList(merged.TechStack))
	mURLsB, _ := json.Marshal(emptyToList(merged.SourceURLs))
	if _, err := tx.ExecContext(ctx, `
UPDATE companies SET
  domain = ?, career_url = ?, category = ?, size_bucket = ?, funding_stage = ?,
  tech_stack = ?, source_urls = ?, low_confidence = ?, last_verified_at = ?
WHERE id = ?;`,
		merged.Domain, merged.CareerURL, string(merged.Category), merged.SizeBucket,
		merged.FundingStage, string(mTagsB), string(mURLsB),
		boolInt(merged.LowConfidence), merged.LastVerifiedAt.Format(time.RFC3339),
		existing.ID,
	); err != nil {
		return out, err
	}

	out.CompanyID = existing.ID
	return out, tx.Commit()
}

const companySelect = `
SELECT id, identity, name, domain, career_url, category, size_bucket,
       funding_stage, tech_stack, source_urls, low_confidence, active,
       empty_scrapes, discovered_at, last_verified_at
FROM companies`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(r rowScanner) (domain.Company, error) {
	var c domain.Company
	var cat, tagsJSON, urlsJSON, disc, verified string
	var lowConf, active int
	err := r.Scan(&c.ID, &c.Identity, &c.Name, &c.Domain, &c.CareerURL, &cat,
		&c.SizeBucket, &c.FundingStage, &tagsJSON, &urlsJSON, &lowConf, &active,
		&c.EmptyScrapes, &disc, &verified)
	if err != nil {
		return c, err
	}
	c.Category = domain.CompanyCategory(cat)
	c.LowConfidence = lowConf != 0
	c.Active = active != 0
	_ = json.Unmarshal([]byte(tagsJSON), &c.TechStack)
	_ = json.Unmarshal([]byte(urlsJSON), &c.SourceURLs)
	c.DiscoveredAt, _ = time.Parse(time.RFC3339, disc)
	c.LastVerifiedAt, _ = time.Parse(time.RFC3339, verified)
	return c, nil
}

func GetCompany(ctx context.Context, db *sql.DB, id int64) (domain.Company, error) {
	return scanCompany(db.QueryRowContext(ctx, companySelect+` WHERE id = ?;`, id))
}

func ActiveCompanies(ctx context.Context, db *sql.DB) ([]domain.Company, error) {
	rows, err := db.QueryContext(ctx, companySelect+` WHERE active = 1 ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkCompanyScrape records an aggregator visit: the activity signal advances
// last_verified_at, and the empty-scrape streak drives deactivation once it
// reaches the threshold. Companies are never hard-deleted.
func MarkCompanyScrape(ctx context.Context, db *sql.DB, id int64, sawPostings bool, threshold int) (deactivated bool, err error) {
	now := time.Now().UTC().Format(time.RFC3339)
	if sawPostings {
		_, err = db.ExecContext(ctx, `
UPDATE companies SET empty_scrapes = 0, last_verified_at = ? WHERE id = ?;`, now, id)
		return false, err
	}

	_, err = db.ExecContext(ctx, `
UPDATE companies SET empty_scrapes = empty_scrapes + 1, last_verified_at = ? WHERE id = ?;`, now, id)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `
UPDATE companies SET active = 0 WHERE id = ? AND active = 1 AND empty_scrapes >= ?;`, id, threshold)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func emptyToList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func unionStrings(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
