package match

import (
	"fmt"
	"math"

	"github.com/durgesh-code/ai-job-agent/internal/domain"
)

// Weights maps factor keys to non-negative weights. They need not sum to 1;
// the engine normalizes by the sum of weights actually applied, so scaling
// every weight uniformly leaves rankings unchanged.
type Weights map[string]float64

// DefaultWeights mirrors the tuned production defaults (they happen to sum to
// 1, but nothing relies on that).
func DefaultWeights() Weights {
	return Weights{
		domain.FactorSemantic:   0.30,
		domain.FactorSkill:      0.25,
		domain.FactorExperience: 0.20,
		domain.FactorLocation:   0.10,
		domain.FactorSalary:     0.10,
		domain.FactorCompany:    0.05,
	}
}

var validFactorKey = func() map[string]bool {
	m := make(map[string]bool, len(domain.FactorKeys))
	for _, k := range domain.FactorKeys {
		m[k] = true
	}
	return m
}()

func (w Weights) validate() error {
	var sum float64
	for k, v := range w {
		if !validFactorKey[k] {
			return fmt.Errorf("%w: unknown factor %q", ErrInvalidWeight, k)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: factor %q = %v", ErrInvalidWeight, k, v)
		}
		sum += v
	}
	if sum <= 0 {
		return fmt.Errorf("%w: no positive weights", ErrInvalidWeight)
	}
	return nil
}
