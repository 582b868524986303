package match

import (
	"strings"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
	"github.com/durgesh-code/ai-job-agent/internal/normalize"
)

// skillMatch is Jaccard similarity over lowercased skill sets. A job with no
// extracted skills scores 0; the empty union never divides.
func skillMatch(profileSkills, jobSkills []string) float64 {
	if len(profileSkills) == 0 || len(jobSkills) == 0 {
		return 0
	}
	ps := toSet(profileSkills)
	js := toSet(jobSkills)

	inter := 0
	for s := range ps {
		if js[s] {
			inter++
		}
	}
	union := len(ps) + len(js) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// experienceMatch decays linearly with the gap between profile years and the
// posting's estimate, hitting 0 at the tolerance. A posting with no estimate
// scores a neutral 0.7 rather than punishing experienced profiles.
func experienceMatch(profileYears, jobYears int, toleranceYears float64) float64 {
	if jobYears == 0 {
		return 0.7
	}
	if toleranceYears <= 0 {
		toleranceYears = 5
	}
	gap := float64(profileYears - jobYears)
	if gap < 0 {
		gap = -gap
	}
	return 1 - clamp01(gap/toleranceYears)
}

// locationMatch is rank-weighted over the profile's ordered preferences: the
// first preference scores 1, decaying linearly to the floor for the last.
// Jobs outside the list score the remote partial when remote-compatible,
// otherwise 0. A profile with no location preferences doesn't constrain.
func locationMatch(preferred []string, jobLocation string, remote bool, remotePartial, rankFloor float64) float64 {
	if len(preferred) == 0 {
		return 1
	}
	jobKey := normalize.LocationKey(jobLocation)
	if jobKey != "" {
		for i, p := range preferred {
			pk := normalize.LocationKey(p)
			if pk == "" {
				continue
			}
			if strings.Contains(jobKey, pk) || strings.Contains(pk, jobKey) {
				if len(preferred) == 1 {
					return 1
				}
				frac := float64(i) / float64(len(preferred)-1)
				return 1 - (1-rankFloor)*frac
			}
		}
	}
	if remote {
		return remotePartial
	}
	return 0
}

// salaryMatch is the overlap ratio of the job band against the profile band.
// Unknown salary on either side is never penalized. Disjoint bands score 0;
// containment either way scores 1.
func salaryMatch(job *domain.SalaryRange, profileLow, profileHigh int) float64 {
	if job == nil || profileLow <= 0 {
		return 1
	}
	if profileHigh < profileLow {
		profileHigh = profileLow
	}
	jobLow, jobHigh := job.Low, job.High
	if jobHigh < jobLow {
		jobHigh = jobLow
	}

	low := maxInt(jobLow, profileLow)
	high := minInt(jobHigh, profileHigh)
	if high < low {
		return 0
	}
	overlap := float64(high - low)
	span := float64(minInt(jobHigh-jobLow, profileHigh-profileLow))
	if span <= 0 {
		// point ranges: inside counts as full overlap
		return 1
	}
	return clamp01(overlap / span)
}

// companyMatch nudges rather than excludes: preferred categories score 1,
// everything else the configured default.
func companyMatch(preferred []domain.CompanyCategory, category domain.CompanyCategory, defaultScore float64) float64 {
	for _, p := range preferred {
		if p == category {
			return 1
		}
	}
	return defaultScore
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			m[s] = true
		}
	}
	return m
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
