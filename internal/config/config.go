package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/match"
	"github.com/durgesh-code/ai-job-agent/internal/refresh"
	"github.com/durgesh-code/ai-job-agent/internal/scaling"
)

// Seed is a hand-curated discovery record, for bootstrapping the registry
// before any remote source is configured.
type Seed struct {
	Name       string `yaml:"name"`
	Domain     string `yaml:"domain"`
	Category   string `yaml:"category"`
	SizeBucket string `yaml:"size_bucket"`
	Sector     string `yaml:"sector"`
}

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Refresh struct {
		DiscoveryHours         int `yaml:"discovery_hours"`
		AggregationHours       int `yaml:"aggregation_hours"`
		CompanyTimeoutSeconds  int `yaml:"company_timeout_seconds"`
		SourceTimeoutSeconds   int `yaml:"source_timeout_seconds"`
		MaxConcurrentCompanies int `yaml:"max_concurrent_companies"`
	} `yaml:"refresh"`

	Scaling struct {
		MaxInFlight       int `yaml:"max_in_flight"`
		PerHostDelayMS    int `yaml:"per_host_delay_ms"`
		CacheTTLHours     int `yaml:"cache_ttl_hours"`
		BackoffMaxSeconds int `yaml:"backoff_max_seconds"`
	} `yaml:"scaling"`

	Encoder struct {
		Dim int `yaml:"dim"`
	} `yaml:"encoder"`

	Thresholds struct {
		AbsentRuns   int `yaml:"absent_runs"`
		EmptyScrapes int `yaml:"empty_scrapes"`
	} `yaml:"thresholds"`

	Matching struct {
		TopK               int                `yaml:"top_k"`
		MinScore           float64            `yaml:"min_score"`
		Weights            map[string]float64 `yaml:"weights"`
		PoolMultiplier     int                `yaml:"pool_multiplier"`
		MinPoolSize        int                `yaml:"min_pool_size"`
		ExperienceTolYears float64            `yaml:"experience_tolerance_years"`
		RemotePartialScore float64            `yaml:"remote_partial_score"`
		LocationRankFloor  float64            `yaml:"location_rank_floor"`
		CompanyDefault     float64            `yaml:"company_default_score"`
	} `yaml:"matching"`

	Discovery struct {
		Endpoint       string `yaml:"endpoint"`
		KeyringAccount string `yaml:"keyring_account"`
		Seeds          []Seed `yaml:"seeds"`
	} `yaml:"discovery"`

	Profile struct {
		UserID              string   `yaml:"user_id"`
		Skills              []string `yaml:"skills"`
		YearsExperience     int      `yaml:"years_experience"`
		PreferredLocations  []string `yaml:"preferred_locations"`
		SalaryLow           int      `yaml:"salary_low"`
		SalaryHigh          int      `yaml:"salary_high"`
		PreferredCategories []string `yaml:"preferred_categories"`
		TargetRoles         []string `yaml:"target_roles"`
		Summary             string   `yaml:"summary"`
	} `yaml:"profile"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Adapters from the file shape to component knobs. Zero/omitted values fall
// through to each component's own defaults.

func (c Config) ScalingConfig() scaling.Config {
	return scaling.Config{
		MaxInFlight:  c.Scaling.MaxInFlight,
		PerHostDelay: time.Duration(c.Scaling.PerHostDelayMS) * time.Millisecond,
		CacheTTL:     time.Duration(c.Scaling.CacheTTLHours) * time.Hour,
		BackoffMax:   time.Duration(c.Scaling.BackoffMaxSeconds) * time.Second,
	}
}

func (c Config) RefreshPolicy() refresh.Policy {
	return refresh.Policy{
		DiscoveryInterval:   time.Duration(c.Refresh.DiscoveryHours) * time.Hour,
		AggregationInterval: time.Duration(c.Refresh.AggregationHours) * time.Hour,
		CompanyTimeout:      time.Duration(c.Refresh.CompanyTimeoutSeconds) * time.Second,
		SourceTimeout:       time.Duration(c.Refresh.SourceTimeoutSeconds) * time.Second,
		MaxConcurrent:       c.Refresh.MaxConcurrentCompanies,
	}
}

func (c Config) MatchTunables() match.Tunables {
	return match.Tunables{
		PoolMultiplier:     c.Matching.PoolMultiplier,
		MinPoolSize:        c.Matching.MinPoolSize,
		ExperienceTolYears: c.Matching.ExperienceTolYears,
		RemotePartialScore: c.Matching.RemotePartialScore,
		LocationRankFloor:  c.Matching.LocationRankFloor,
		CompanyDefault:     c.Matching.CompanyDefault,
	}
}

func (c Config) MatchWeights() match.Weights {
	if len(c.Matching.Weights) == 0 {
		return match.DefaultWeights()
	}
	w := make(match.Weights, len(c.Matching.Weights))
	for k, v := range c.Matching.Weights {
		w[k] = v
	}
	return w
}

func (c Config) UserProfile() domain.UserProfile {
	p := domain.UserProfile{
		UserID:             c.Profile.UserID,
		Skills:             c.Profile.Skills,
		YearsExperience:    c.Profile.YearsExperience,
		PreferredLocations: c.Profile.PreferredLocations,
		SalaryLow:          c.Profile.SalaryLow,
		SalaryHigh:         c.Profile.SalaryHigh,
		TargetRoles:        c.Profile.TargetRoles,
		Summary:            c.Profile.Summary,
	}
	for _, cat := range c.Profile.PreferredCategories {
		p.PreferredCategories = append(p.PreferredCategories, domain.CompanyCategory(cat))
	}
	return p
}

func (c Config) SeedCandidates() []domain.CompanyCandidate {
	out := make([]domain.CompanyCandidate, 0, len(c.Discovery.Seeds))
	for _, s := range c.Discovery.Seeds {
		out = append(out, domain.CompanyCandidate{
			Name:       s.Name,
			Domain:     s.Domain,
			Category:   domain.CompanyCategory(s.Category),
			SizeBucket: s.SizeBucket,
			Sector:     s.Sector,
		})
	}
	return out
}
