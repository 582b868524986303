// Package match scores open postings against a user profile. The vector index
// supplies a semantic candidate pool; five structured factors refine it into a
// weighted composite. Matching never mutates the registry except to repair a
// missing embedding it stumbles over.
package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/encode"
	"github.com/durgesh-code/ai-job-agent/internal/scaling"
	"github.com/durgesh-code/ai-job-agent/internal/store"
	"github.com/durgesh-code/ai-job-agent/internal/vecindex"
)

var (
	ErrInvalidProfile = errors.New("match: profile has no skills and no summary")
	ErrInvalidWeight  = errors.New("match: invalid weights")
)

// Tunables carries the scoring knobs that aren't weights. Zero values fall
// back to the production defaults.
type Tunables struct {
	PoolMultiplier     int     // candidate pool = topK * multiplier
	MinPoolSize        int     // pool floor regardless of topK
	ExperienceTolYears float64 // gap at which experience_score hits 0
	RemotePartialScore float64 // location score for remote jobs outside prefs
	LocationRankFloor  float64 // score of the last-ranked location preference
	CompanyDefault     float64 // company score outside preferred categories
}

func (t Tunables) withDefaults() Tunables {
	if t.PoolMultiplier <= 0 {
		t.PoolMultiplier = 5
	}
	if t.MinPoolSize <= 0 {
		t.MinPoolSize = 50
	}
	if t.ExperienceTolYears <= 0 {
		t.ExperienceTolYears = 5
	}
	if t.RemotePartialScore <= 0 {
		t.RemotePartialScore = 0.6
	}
	if t.LocationRankFloor <= 0 {
		t.LocationRankFloor = 0.5
	}
	if t.CompanyDefault <= 0 {
		t.CompanyDefault = 0.5
	}
	return t
}

type Engine struct {
	db     *store.DB
	enc    *encode.Encoder
	index  *vecindex.Index
	scaler *scaling.Manager
	log    *zap.Logger
	tun    Tunables
}

func NewEngine(db *store.DB, enc *encode.Encoder, index *vecindex.Index, scaler *scaling.Manager, tun Tunables, log *zap.Logger) *Engine {
	return &Engine{
		db:     db,
		enc:    enc,
		index:  index,
		scaler: scaler,
		log:    log,
		tun:    tun.withDefaults(),
	}
}

// Match ranks open postings for a profile. Results come back sorted by
// composite score descending, then posted-at descending, then job id
// ascending, so repeated calls over an unchanged registry return identical
// slices. An empty index yields an empty result, not an error.
func (e *Engine) Match(ctx context.Context, profile domain.UserProfile, topK int, minScore float64, weights Weights) ([]domain.MatchResult, error) {
	if len(profile.Skills) == 0 && strings.TrimSpace(profile.Summary) == "" {
		return nil, ErrInvalidProfile
	}
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := weights.validate(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 10
	}

	release, err := e.scaler.Admit(ctx)
	if err != nil {
		return nil, err
	}
	qvec := e.enc.Encode(profileQueryText(profile))
	pool := topK * e.tun.PoolMultiplier
	if pool < e.tun.MinPoolSize {
		pool = e.tun.MinPoolSize
	}
	hits, err := e.index.Query(qvec, pool)
	release()
	if err != nil {
		return nil, fmt.Errorf("match: query index: %w", err)
	}
	if len(hits) == 0 {
		return []domain.MatchResult{}, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.JobID
	}
	candidates, err := store.Candidates(ctx, e.db.Pool, ids)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var results []domain.MatchResult
	for _, h := range hits {
		cand, ok := candidates[h.JobID]
		if !ok {
			// index still holds a job the registry has since closed or staled
			continue
		}
		r, err := e.score(ctx, profile, cand, h.Similarity, weights, now)
		if err != nil {
			return nil, err
		}
		if r.Score < minScore {
			continue
		}
		results = append(results, r)
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		pa, pb := candidates[results[a].JobID].Job.PostedAt, candidates[results[b].JobID].Job.PostedAt
		switch {
		case pa != nil && pb != nil && !pa.Equal(*pb):
			return pa.After(*pb)
		case pa != nil && pb == nil:
			return true
		case pa == nil && pb != nil:
			return false
		}
		return results[a].JobID < results[b].JobID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []domain.MatchResult{}
	}
	return results, nil
}

func (e *Engine) score(ctx context.Context, profile domain.UserProfile, cand store.Candidate, similarity float64, weights Weights, now time.Time) (domain.MatchResult, error) {
	job := cand.Job
	degraded := false

	// a registry row with no stored embedding (or one from an older model) is
	// repaired in place so the next query sees a consistent index
	vec, version, err := store.GetEmbedding(ctx, e.db.Pool, job.ID)
	if err != nil {
		return domain.MatchResult{}, err
	}
	if vec == nil || version != e.enc.Version() {
		degraded = true
		release, err := e.scaler.Admit(ctx)
		if err != nil {
			return domain.MatchResult{}, err
		}
		fresh := e.enc.Encode(job.Title + " " + job.CleanDesc)
		release()
		if err := store.PutEmbedding(ctx, e.db.Pool, job.ID, e.enc.Version(), fresh); err != nil {
			return domain.MatchResult{}, err
		}
		if err := e.index.Upsert(job.ID, fresh); err != nil {
			return domain.MatchResult{}, err
		}
		e.log.Warn("re-embedded job during match",
			zap.Int64("job_id", job.ID),
			zap.String("had_version", version))
	}

	breakdown := map[string]float64{
		domain.FactorSemantic:   clamp01(similarity),
		domain.FactorSkill:      skillMatch(profile.Skills, job.Skills),
		domain.FactorExperience: experienceMatch(profile.YearsExperience, job.ExpYears, e.tun.ExperienceTolYears),
		domain.FactorLocation:   locationMatch(profile.PreferredLocations, job.Location, job.Remote, e.tun.RemotePartialScore, e.tun.LocationRankFloor),
		domain.FactorSalary:     salaryMatch(job.Salary, profile.SalaryLow, profile.SalaryHigh),
		domain.FactorCompany:    companyMatch(profile.PreferredCategories, cand.Category, e.tun.CompanyDefault),
	}

	var weighted, applied float64
	for k, w := range weights {
		if w == 0 {
			continue
		}
		weighted += w * breakdown[k]
		applied += w
	}

	return domain.MatchResult{
		UserID:     profile.UserID,
		JobID:      job.ID,
		Score:      weighted / applied,
		Breakdown:  breakdown,
		Reasons:    reasons(profile, job, breakdown),
		Degraded:   degraded,
		ComputedAt: now,
	}, nil
}

func profileQueryText(p domain.UserProfile) string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(p.Summary); s != "" {
		parts = append(parts, s)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, strings.Join(p.Skills, " "))
	}
	if len(p.TargetRoles) > 0 {
		parts = append(parts, strings.Join(p.TargetRoles, " "))
	}
	return strings.Join(parts, " ")
}

// reasons renders a short human explanation per strong factor, in factor-key
// order so output is stable.
func reasons(profile domain.UserProfile, job domain.JobPosting, breakdown map[string]float64) []string {
	var out []string
	for _, k := range domain.FactorKeys {
		s := breakdown[k]
		switch k {
		case domain.FactorSemantic:
			if s >= 0.5 {
				out = append(out, "description closely matches your profile")
			}
		case domain.FactorSkill:
			if s > 0 {
				shared := sharedSkills(profile.Skills, job.Skills)
				if len(shared) > 3 {
					shared = shared[:3]
				}
				out = append(out, "shares skills: "+strings.Join(shared, ", "))
			}
		case domain.FactorExperience:
			if s >= 0.8 && job.ExpYears > 0 {
				out = append(out, fmt.Sprintf("experience fit (~%d years asked)", job.ExpYears))
			}
		case domain.FactorLocation:
			if s >= 1 && job.Location != "" {
				out = append(out, "in a preferred location: "+job.Location)
			} else if job.Remote && s > 0 {
				out = append(out, "remote friendly")
			}
		case domain.FactorSalary:
			if s >= 1 && job.Salary != nil {
				out = append(out, "salary band overlaps your range")
			}
		case domain.FactorCompany:
			if s >= 1 {
				out = append(out, "preferred company type")
			}
		}
	}
	return out
}

func sharedSkills(a, b []string) []string {
	bs := toSet(b)
	var out []string
	for _, s := range a {
		if bs[strings.ToLower(strings.TrimSpace(s))] {
			out = append(out, strings.ToLower(strings.TrimSpace(s)))
		}
	}
	sort.Strings(out)
	return out
}
