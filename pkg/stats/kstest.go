package stats

import (
	"fmt"
	"math"
	"sort"
)

// TwoSampleTest is a nonparametric distribution-equality test. Any
// implementation returning {statistic, p-value} preserves the drift
// decision contract.
type TwoSampleTest interface {
	Name() string
	Test(reference, current []float64) (statistic, pValue float64, err error)
}

// KolmogorovSmirnov is a two-sample Kolmogorov-Smirnov test with the
// asymptotic p-value approximation. Fully deterministic: repeated calls on
// the same samples yield identical results.
type KolmogorovSmirnov struct{}

func (KolmogorovSmirnov) Name() string { return "ks_2samp" }

// Test computes the supremum distance between the two empirical CDFs and
// the asymptotic significance level.
func (KolmogorovSmirnov) Test(reference, current []float64) (float64, float64, error) {
	n1, n2 := len(reference), len(current)
	if n1 < 2 || n2 < 2 {
		return 0, 0, fmt.Errorf("ks test: need at least 2 samples per side, got %d and %d", n1, n2)
	}

	a := append([]float64(nil), reference...)
	b := append([]float64(nil), current...)
	sort.Float64s(a)
	sort.Float64s(b)

	var d float64
	i, j := 0, 0
	for i < n1 && j < n2 {
		d1, d2 := a[i], b[j]
		if d1 <= d2 {
			i++
		}
		if d2 <= d1 {
			j++
		}
		diff := math.Abs(float64(i)/float64(n1) - float64(j)/float64(n2))
		if diff > d {
			d = diff
		}
	}

	en := math.Sqrt(float64(n1) * float64(n2) / float64(n1+n2))
	p := ksProb((en + 0.12 + 0.11/en) * d)
	return d, p, nil
}

// ksProb evaluates the Kolmogorov distribution tail Q_KS(lambda).
func ksProb(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	const (
		eps1  = 1e-3
		eps2  = 1e-8
		terms = 100
	)
	a2 := -2 * lambda * lambda
	sum, prevTerm, sign := 0.0, 0.0, 1.0
	for k := 1; k <= terms; k++ {
		term := sign * 2 * math.Exp(a2*float64(k)*float64(k))
		sum += term
		if math.Abs(term) <= eps1*prevTerm || math.Abs(term) <= eps2*sum {
			return clampProb(sum)
		}
		sign = -sign
		prevTerm = math.Abs(term)
	}
	return 1 // failed to converge: treat as no evidence against equality
}

func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
