package config

import (
	"fmt"
	"strings"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

var knownFactors = func() map[string]bool {
	m := make(map[string]bool, len(domain.FactorKeys))
	for _, k := range domain.FactorKeys {
		m[k] = true
	}
	return m
}()

// NormalizeAndValidate trims list fields and checks the knobs that would
// otherwise fail deep inside a batch.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Profile.Skills = trimList(out.Profile.Skills)
	out.Profile.PreferredLocations = trimList(out.Profile.PreferredLocations)
	out.Profile.TargetRoles = trimList(out.Profile.TargetRoles)

	if out.Refresh.DiscoveryHours < 0 || out.Refresh.AggregationHours < 0 {
		res.addErr("refresh intervals must be >= 0")
	}
	if out.Scaling.PerHostDelayMS > 0 && out.Scaling.PerHostDelayMS < 100 {
		res.addWarn("scaling.per_host_delay_ms is very low (%d) and may trip rate limits", out.Scaling.PerHostDelayMS)
	}
	if out.Encoder.Dim < 0 {
		res.addErr("encoder.dim must be >= 0 (0 means default)")
	}

	if out.Matching.MinScore < 0 || out.Matching.MinScore > 1 {
		res.addErr("matching.min_score must be in [0,1]")
	}
	for k, v := range out.Matching.Weights {
		if !knownFactors[k] {
			res.addErr("matching.weights: unknown factor %q", k)
		}
		if v < 0 {
			res.addErr("matching.weights[%s] must be >= 0", k)
		}
	}

	for i, c := range out.Profile.PreferredCategories {
		if !domain.CompanyCategory(c).Valid() {
			res.addErr("profile.preferred_categories[%d]: unknown category %q", i, c)
		}
	}
	for i, s := range out.Discovery.Seeds {
		if strings.TrimSpace(s.Name) == "" && strings.TrimSpace(s.Domain) == "" {
			res.addErr("discovery.seeds[%d] needs a name or a domain", i)
		}
		if s.Category != "" && !domain.CompanyCategory(s.Category).Valid() {
			res.addErr("discovery.seeds[%d]: unknown category %q", i, s.Category)
		}
	}

	if len(out.Profile.Skills) == 0 && strings.TrimSpace(out.Profile.Summary) == "" {
		res.addWarn("profile has neither skills nor a summary; matching will refuse to run")
	}
	if out.Discovery.Endpoint == "" && len(out.Discovery.Seeds) == 0 {
		res.addWarn("no discovery endpoint and no seeds; the registry will stay empty")
	}

	return out, res
}
