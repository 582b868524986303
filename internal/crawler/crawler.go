// Package crawler turns raw discovery records into canonical companies.
package crawler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/normalize"
	"github.com/durgesh-code/ai-job-agent/internal/scaling"
	"github.com/durgesh-code/ai-job-agent/internal/store"
)

// Source is the external discovery collaborator (search API, category feed).
// The crawler never cares how candidates were produced.
type Source interface {
	Name() string
	Discover(ctx context.Context) ([]domain.CompanyCandidate, error)
}

type Crawler struct {
	db     *store.DB
	scaler *scaling.Manager
	hc     *http.Client
	log    *zap.Logger
}

func New(db *store.DB, scaler *scaling.Manager, log *zap.Logger) *Crawler {
	return &Crawler{
		db:     db,
		scaler: scaler,
		hc:     &http.Client{Timeout: 20 * time.Second},
		log:    log,
	}
}

// Outcome of merging one candidate.
type Outcome struct {
	CompanyID int64
	Created   bool
}

// MergeCompany normalizes a candidate and performs the conditional upsert.
// Domain is the identity when present; a name-only candidate falls back to
// the normalized name and is flagged low-confidence.
func (c *Crawler) MergeCompany(ctx context.Context, cand domain.CompanyCandidate) (Outcome, error) {
	name := normalize.CleanText(cand.Name)
	if name == "" {
		return Outcome{}, &domain.ParseError{Reason: "candidate has no name"}
	}
	if !cand.Category.Valid() {
		return Outcome{}, &domain.ParseError{Reason: "unknown company category " + string(cand.Category)}
	}

	dom := normalize.Domain(cand.Domain)
	if dom == "" {
		// sometimes only source URLs carry the company site
		for _, u := range cand.SourceURLs {
			if d := normalize.Domain(u); d != "" {
				dom = d
				break
			}
		}
	}

	comp := domain.Company{
		Name:       name,
		Domain:     dom,
		Category:   cand.Category,
		SizeBucket: cand.SizeBucket,
		SourceURLs: cand.SourceURLs,
	}
	if dom != "" {
		comp.Identity = dom
	} else {
		comp.Identity = normalize.CompanyKey(name)
		comp.LowConfidence = true
	}
	if cand.Sector != "" {
		comp.TechStack = normalize.UnionTags(nil, []string{cand.Sector})
	}

	if dom != "" {
		if careers := c.findCareersURL(ctx, dom); careers != "" {
			comp.CareerURL = careers
		}
	}

	out, err := store.UpsertCompany(ctx, c.db.Pool, comp)
	if err != nil {
		return Outcome{}, err
	}
	if out.CategoryConflict {
		c.log.Warn("company category conflict, keeping stored value",
			zap.String("identity", comp.Identity),
			zap.String("candidate_category", string(cand.Category)))
	}
	c.log.Debug("merged company",
		zap.String("identity", comp.Identity),
		zap.Bool("created", out.Created))
	return Outcome{CompanyID: out.CompanyID, Created: out.Created}, nil
}

// findCareersURL probes the company homepage for a careers page. Failures are
// fine; a company without a careers URL just won't be aggregated yet.
func (c *Crawler) findCareersURL(ctx context.Context, dom string) string {
	homepage := "https://" + dom
	v, err := c.scaler.Do(ctx, "careers:"+dom, homepage, func(ctx context.Context) (any, error) {
		u, err := FindCareersURL(ctx, c.hc, homepage)
		if err != nil {
			return nil, err
		}
		return u, nil
	})
	if err != nil {
		c.log.Debug("careers probe failed", zap.String("domain", dom), zap.Error(err))
		return ""
	}
	s, _ := v.(string)
	return s
}

// Summary of one discovery batch.
type Summary struct {
	Source        string `json:"source"`
	Candidates    int    `json:"candidates"`
	Created       int    `json:"created"`
	Merged        int    `json:"merged"`
	ParseFailures int    `json:"parse_failures"`
}

// Run pulls one source and merges everything it returned. Source
// unavailability is the only hard failure; bad individual records are counted
// and skipped.
func (c *Crawler) Run(ctx context.Context, src Source) (Summary, error) {
	sum := Summary{Source: src.Name()}

	cands, err := src.Discover(ctx)
	if err != nil {
		return sum, &domain.FetchError{URL: src.Name(), Err: err}
	}
	sum.Candidates = len(cands)

	for _, cand := range cands {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		out, err := c.MergeCompany(ctx, cand)
		if err != nil {
			sum.ParseFailures++
			c.log.Warn("candidate skipped", zap.String("name", cand.Name), zap.Error(err))
			continue
		}
		if out.Created {
			sum.Created++
		} else {
			sum.Merged++
		}
	}
	return sum, nil
}
