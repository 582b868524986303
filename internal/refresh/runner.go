// Package refresh drives the recurring discovery and aggregation batches.
// Each batch is logged to the runs table and tolerates individual company or
// source failures; only context cancellation stops a batch early.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/durgesh-code/ai-job-agent/internal/aggregate"
	"github.com/durgesh-code/ai-job-agent/internal/crawler"
	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/store"
)

// Policy controls batch cadence and per-unit patience.
type Policy struct {
	DiscoveryInterval   time.Duration
	AggregationInterval time.Duration
	CompanyTimeout      time.Duration // one company's scrape+ingest
	SourceTimeout       time.Duration // one discovery source
	MaxConcurrent       int           // companies aggregated in parallel
}

func (p Policy) withDefaults() Policy {
	if p.DiscoveryInterval <= 0 {
		p.DiscoveryInterval = 24 * time.Hour
	}
	if p.AggregationInterval <= 0 {
		p.AggregationInterval = 6 * time.Hour
	}
	if p.CompanyTimeout <= 0 {
		p.CompanyTimeout = 5 * time.Minute
	}
	if p.SourceTimeout <= 0 {
		p.SourceTimeout = 5 * time.Minute
	}
	if p.MaxConcurrent <= 0 {
		p.MaxConcurrent = 4
	}
	return p
}

type Runner struct {
	db      *store.DB
	crawler *crawler.Crawler
	agg     *aggregate.Aggregator
	log     *zap.Logger
	policy  Policy
}

func NewRunner(db *store.DB, cr *crawler.Crawler, agg *aggregate.Aggregator, policy Policy, log *zap.Logger) *Runner {
	return &Runner{
		db:      db,
		crawler: cr,
		agg:     agg,
		log:     log,
		policy:  policy.withDefaults(),
	}
}

func (r *Runner) Policy() Policy { return r.policy }

type DiscoveryReport struct {
	RunID     string            `json:"run_id"`
	Sources   []crawler.Summary `json:"sources"`
	Failed    int               `json:"failed_sources"`
	Companies int               `json:"companies_touched"`
}

// RunDiscovery pulls every source. A source that errors is counted and
// skipped; the others still run.
func (r *Runner) RunDiscovery(ctx context.Context, sources []crawler.Source) (DiscoveryReport, error) {
	rep := DiscoveryReport{RunID: uuid.NewString()}
	if err := store.StartRun(ctx, r.db.Pool, rep.RunID, "discovery"); err != nil {
		return rep, err
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			r.finish(rep.RunID, "cancelled", rep, err)
			return rep, err
		}
		sctx, cancel := context.WithTimeout(ctx, r.policy.SourceTimeout)
		sum, err := r.crawler.Run(sctx, src)
		cancel()
		if err != nil {
			rep.Failed++
			r.log.Warn("discovery source failed",
				zap.String("source", src.Name()),
				zap.Error(err))
			continue
		}
		rep.Sources = append(rep.Sources, sum)
		rep.Companies += sum.Created + sum.Merged
	}

	r.finish(rep.RunID, "ok", rep, nil)
	r.log.Info("discovery run finished",
		zap.String("run_id", rep.RunID),
		zap.Int("sources", len(rep.Sources)),
		zap.Int("failed_sources", rep.Failed),
		zap.Int("companies", rep.Companies))
	return rep, nil
}

type AggregationReport struct {
	RunID         string `json:"run_id"`
	Companies     int    `json:"companies"`
	Inserted      int    `json:"inserted"`
	Revised       int    `json:"revised"`
	Unchanged     int    `json:"unchanged"`
	Stale         int    `json:"stale"`
	FetchFailures int    `json:"fetch_failures"`
	ParseFailures int    `json:"parse_failures"`
	StoreFailures int    `json:"store_failures"`
}

// RunAggregation re-scrapes every active company's career page, a bounded
// number in parallel. One company failing never aborts the batch.
func (r *Runner) RunAggregation(ctx context.Context) (AggregationReport, error) {
	rep := AggregationReport{RunID: uuid.NewString()}
	if err := store.StartRun(ctx, r.db.Pool, rep.RunID, "aggregation"); err != nil {
		return rep, err
	}

	companies, err := store.ActiveCompanies(ctx, r.db.Pool)
	if err != nil {
		r.finish(rep.RunID, "error", rep, err)
		return rep, err
	}
	rep.Companies = len(companies)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.policy.MaxConcurrent)

	for _, company := range companies {
		company := company
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cctx, cancel := context.WithTimeout(gctx, r.policy.CompanyTimeout)
			sum, err := r.agg.RefreshCompany(cctx, company)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) && gctx.Err() != nil {
					return err
				}
				switch {
				case errors.Is(err, domain.ErrFetch):
					rep.FetchFailures++
				case errors.Is(err, domain.ErrParse):
					rep.ParseFailures++
				default:
					rep.StoreFailures++
				}
				r.log.Warn("company refresh failed",
					zap.Int64("company_id", company.ID),
					zap.String("identity", company.Identity),
					zap.Error(err))
				return nil
			}
			rep.Inserted += sum.Inserted
			rep.Revised += sum.Revised
			rep.Unchanged += sum.Unchanged
			rep.Stale += sum.Stale
			rep.ParseFailures += sum.ParseFailures
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.finish(rep.RunID, "cancelled", rep, err)
		return rep, err
	}

	r.finish(rep.RunID, "ok", rep, nil)
	r.log.Info("aggregation run finished",
		zap.String("run_id", rep.RunID),
		zap.Int("companies", rep.Companies),
		zap.Int("inserted", rep.Inserted),
		zap.Int("revised", rep.Revised),
		zap.Int("stale", rep.Stale),
		zap.Int("fetch_failures", rep.FetchFailures))
	return rep, nil
}

// finish is best-effort; a run-log write failure must not fail the batch.
func (r *Runner) finish(runID, status string, stats any, runErr error) {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	js, _ := json.Marshal(stats)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.FinishRun(ctx, r.db.Pool, runID, status, string(js), msg); err != nil {
		r.log.Warn("run log update failed", zap.String("run_id", runID), zap.Error(err))
	}
}
