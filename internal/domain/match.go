package domain

import "time"

// Factor keys form a closed set; unknown keys in a weight map are rejected.
const (
	FactorSemantic   = "semantic_score"
	FactorSkill      = "skill_match"
	FactorExperience = "experience_match"
	FactorLocation   = "location_match"
	FactorSalary     = "salary_match"
	FactorCompany    = "company_match"
)

// FactorKeys in stable order, used when iterating breakdowns deterministically.
var FactorKeys = []string{
	FactorSemantic,
	FactorSkill,
	FactorExperience,
	FactorLocation,
	FactorSalary,
	FactorCompany,
}

type MatchResult struct {
	UserID     string
	JobID      int64
	Score      float64 // composite, in [0,1]
	Breakdown  map[string]float64
	Reasons    []string
	Degraded   bool // embedding was missing and re-encoded lazily
	ComputedAt time.Time
}
