package config

import (
	"errors"
	"os"
	"path/filepath"
)

const defaultYAML = `app:
  data_dir: ""

refresh:
  discovery_hours: 24
  aggregation_hours: 6
  company_timeout_seconds: 300
  source_timeout_seconds: 300
  max_concurrent_companies: 4

scaling:
  max_in_flight: 8
  per_host_delay_ms: 500
  cache_ttl_hours: 24
  backoff_max_seconds: 120

encoder:
  dim: 256

thresholds:
  absent_runs: 3
  empty_scrapes: 3

matching:
  top_k: 10
  min_score: 0.0
  pool_multiplier: 5
  min_pool_size: 50
  experience_tolerance_years: 5
  remote_partial_score: 0.6
  location_rank_floor: 0.5
  company_default_score: 0.5
  weights:
    semantic_score: 0.30
    skill_match: 0.25
    experience_match: 0.20
    location_match: 0.10
    salary_match: 0.10
    company_match: 0.05

discovery:
  endpoint: ""
  keyring_account: ""
  seeds: []

profile:
  user_id: "default"
  skills: []
  years_experience: 0
  preferred_locations: []
  salary_low: 0
  salary_high: 0
  preferred_categories: []
  target_roles: []
  summary: ""
`

// EnsureUserConfig writes the default config into the data dir on first run
// and returns the path either way.
func EnsureUserConfig(dataDir string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(userPath, []byte(defaultYAML), 0o644); err != nil {
		return "", err
	}
	return userPath, nil
}
