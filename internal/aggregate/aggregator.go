// Package aggregate ingests scraped postings into the job registry and keeps
// the vector index in step with posting lifecycle.
package aggregate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/encode"
	"github.com/durgesh-code/ai-job-agent/internal/normalize"
	"github.com/durgesh-code/ai-job-agent/internal/scaling"
	"github.com/durgesh-code/ai-job-agent/internal/store"
	"github.com/durgesh-code/ai-job-agent/internal/vecindex"
)

// Scraper is the external scraping collaborator: given a company it returns
// raw postings from its career page(s).
type Scraper interface {
	Scrape(ctx context.Context, company domain.Company) ([]domain.RawPosting, error)
}

type Aggregator struct {
	db      *store.DB
	enc     *encode.Encoder
	index   *vecindex.Index
	scaler  *scaling.Manager
	scraper Scraper
	log     *zap.Logger

	// consecutive misses before a posting goes stale / a company inactive
	AbsentThreshold int
	EmptyThreshold  int
}

func New(db *store.DB, enc *encode.Encoder, index *vecindex.Index, scaler *scaling.Manager, scraper Scraper, log *zap.Logger) *Aggregator {
	return &Aggregator{
		db:              db,
		enc:             enc,
		index:           index,
		scaler:          scaler,
		scraper:         scraper,
		log:             log,
		AbsentThreshold: 3,
		EmptyThreshold:  3,
	}
}

type IngestSummary struct {
	CompanyID     int64 `json:"company_id"`
	Inserted      int   `json:"inserted"`
	Revised       int   `json:"revised"`
	Unchanged     int   `json:"unchanged"`
	Stale         int   `json:"stale"`
	ParseFailures int   `json:"parse_failures"`
}

// Ingest merges one scrape's raw postings into the registry. Re-ingesting an
// identical record is a no-op beyond advancing scraped_at; a changed
// fingerprint for a known identity is a revision, never a duplicate row.
// Every record is handled independently, so a cancelled batch leaves the
// registry valid.
func (a *Aggregator) Ingest(ctx context.Context, companyID int64, raw []domain.RawPosting) (IngestSummary, error) {
	sum := IngestSummary{CompanyID: companyID}

	company, err := store.GetCompany(ctx, a.db.Pool, companyID)
	if err != nil {
		return sum, err
	}

	var seen []int64
	for _, r := range raw {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		job, err := a.normalizeRaw(company, r)
		if err != nil {
			sum.ParseFailures++
			a.log.Warn("posting skipped",
				zap.Int64("company_id", companyID),
				zap.String("url", r.SourceURL),
				zap.Error(err))
			continue
		}

		id, prevFP, prevScraped, found, err := store.LookupJob(ctx, a.db.Pool, job.Identity)
		if err != nil {
			return sum, err
		}
		switch {
		case !found:
			id, err = store.InsertJob(ctx, a.db.Pool, job)
			if err != nil {
				return sum, err
			}
			if err := a.reembed(ctx, id, job); err != nil {
				return sum, err
			}
			sum.Inserted++
		case prevFP == job.Fingerprint:
			if err := store.TouchJob(ctx, a.db.Pool, id, job.ScrapedAt); err != nil {
				return sum, err
			}
			// a posting that went stale lost its embedding on the way out;
			// reopening it must restore the vector or it stays unmatchable
			if !a.index.Has(id) {
				if err := a.reembed(ctx, id, job); err != nil {
					return sum, err
				}
			}
			sum.Unchanged++
		default:
			if err := store.ReviseJob(ctx, a.db.Pool, id, job, prevFP, prevScraped); err != nil {
				return sum, err
			}
			// content changed, the old embedding no longer describes the row
			if err := a.reembed(ctx, id, job); err != nil {
				return sum, err
			}
			sum.Revised++
		}
		seen = append(seen, id)
	}

	staleIDs, err := store.MarkAbsent(ctx, a.db.Pool, companyID, seen, a.AbsentThreshold)
	if err != nil {
		return sum, err
	}
	for _, id := range staleIDs {
		a.index.Remove(id)
		if err := store.DeleteEmbedding(ctx, a.db.Pool, id); err != nil {
			return sum, err
		}
	}
	sum.Stale = len(staleIDs)

	deactivated, err := store.MarkCompanyScrape(ctx, a.db.Pool, companyID, len(seen) > 0, a.EmptyThreshold)
	if err != nil {
		return sum, err
	}
	if deactivated {
		a.log.Info("company marked inactive after empty scrapes",
			zap.Int64("company_id", companyID))
	}
	return sum, nil
}

// RefreshCompany scrapes a company's career page through the scaling layer
// and ingests whatever came back.
func (a *Aggregator) RefreshCompany(ctx context.Context, company domain.Company) (IngestSummary, error) {
	if company.CareerURL == "" {
		return IngestSummary{CompanyID: company.ID}, nil
	}

	v, err := a.scaler.Do(ctx, "scrape:"+company.Identity, company.CareerURL,
		func(ctx context.Context) (any, error) {
			return a.scraper.Scrape(ctx, company)
		})
	if err != nil {
		return IngestSummary{CompanyID: company.ID}, &domain.FetchError{URL: company.CareerURL, Err: err}
	}
	raw, _ := v.([]domain.RawPosting)
	return a.Ingest(ctx, company.ID, raw)
}

func (a *Aggregator) reembed(ctx context.Context, jobID int64, job domain.JobPosting) error {
	release, err := a.scaler.Admit(ctx)
	if err != nil {
		return err
	}
	vec := a.enc.Encode(job.Title + " " + job.CleanDesc)
	release()
	if err := store.PutEmbedding(ctx, a.db.Pool, jobID, a.enc.Version(), vec); err != nil {
		return err
	}
	return a.index.Upsert(jobID, vec)
}

func (a *Aggregator) normalizeRaw(company domain.Company, r domain.RawPosting) (domain.JobPosting, error) {
	title := normalize.CleanText(r.Title)
	if title == "" {
		return domain.JobPosting{}, &domain.ParseError{Reason: "posting has no title"}
	}

	clean := normalize.Description(r.Description)
	location := normalize.Location(r.Location)

	job := domain.JobPosting{
		CompanyID:   company.ID,
		Identity:    normalize.JobIdentity(company.Identity, title, location),
		Fingerprint: normalize.Fingerprint(clean),
		Title:       title,
		RawDesc:     r.Description,
		CleanDesc:   clean,
		Location:    location,
		Remote:      normalize.IsRemote(location, title, clean),
		Salary:      normalize.Salary(r.SalaryText),
		ExpYears:    normalize.ExperienceYears(title, clean),
		Skills:      normalize.Skills(clean),
		SourceURL:   r.SourceURL,
		ScrapedAt:   time.Now().UTC(),
		Status:      domain.JobOpen,
	}
	if t := parsePostedAt(r.PostedAtText); t != nil {
		job.PostedAt = t
	}
	return job, nil
}

var postedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
}

func parsePostedAt(s string) *time.Time {
	s = normalize.CleanText(s)
	if s == "" {
		return nil
	}
	for _, layout := range postedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
