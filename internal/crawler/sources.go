package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/scaling"
)

// SeedSource serves the hand-curated candidate list from config. It never
// fails, which makes it a useful floor under flaky remote sources.
type SeedSource struct {
	seeds []domain.CompanyCandidate
}

func NewSeedSource(seeds []domain.CompanyCandidate) *SeedSource {
	return &SeedSource{seeds: seeds}
}

func (s *SeedSource) Name() string { return "seeds" }

func (s *SeedSource) Discover(_ context.Context) ([]domain.CompanyCandidate, error) {
	out := make([]domain.CompanyCandidate, len(s.seeds))
	copy(out, s.seeds)
	return out, nil
}

// DirectorySource pulls candidates from a JSON company-directory endpoint.
// Responses are memoized by the scaling layer, so back-to-back discovery runs
// don't hammer the API.
type DirectorySource struct {
	endpoint string
	apiKey   string
	hc       *http.Client
	scaler   *scaling.Manager
}

func NewDirectorySource(endpoint, apiKey string, scaler *scaling.Manager) *DirectorySource {
	return &DirectorySource{
		endpoint: endpoint,
		apiKey:   apiKey,
		hc:       &http.Client{Timeout: 30 * time.Second},
		scaler:   scaler,
	}
}

func (s *DirectorySource) Name() string { return "directory" }

type directoryRecord struct {
	Name       string   `json:"name"`
	Domain     string   `json:"domain"`
	Category   string   `json:"category"`
	SizeBucket string   `json:"size_bucket"`
	Sector     string   `json:"sector"`
	URLs       []string `json:"urls"`
}

func (s *DirectorySource) Discover(ctx context.Context) ([]domain.CompanyCandidate, error) {
	v, err := s.scaler.Do(ctx, "discover:"+s.endpoint, s.endpoint, func(ctx context.Context) (any, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	cands, _ := v.([]domain.CompanyCandidate)
	return cands, nil
}

func (s *DirectorySource) fetch(ctx context.Context) ([]domain.CompanyCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: s.endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{URL: s.endpoint, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body struct {
		Companies []directoryRecord `json:"companies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.ParseError{Reason: "directory response: " + err.Error()}
	}

	out := make([]domain.CompanyCandidate, 0, len(body.Companies))
	for _, r := range body.Companies {
		out = append(out, domain.CompanyCandidate{
			Name:       r.Name,
			Domain:     r.Domain,
			Category:   domain.CompanyCategory(r.Category),
			SizeBucket: r.SizeBucket,
			Sector:     r.Sector,
			SourceURLs: r.URLs,
		})
	}
	return out, nil
}
