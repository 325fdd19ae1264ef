// Package calculator computes fixed deposit maturity using compound interest.
package calculator

import (
	"fmt"
	"math"
	"strings"

	"github.com/Dan9191/deposit-service/internal/models"
)

const (
	MinPrincipal   = 1.0
	MinTenureYears = 1.0
	MinRatePercent = 0.1
	MaxRatePercent = 100.0
)

// Field names used in validation errors
const (
	FieldPrincipal = "principal"
	FieldTenure    = "tenure_years"
	FieldRate      = "annual_rate_percent"
	FieldFrequency = "compounding_frequency"
)

// Validate checks every input field and reports all failures at once
func Validate(p models.FDParameters) error {
	var errs ValidationErrors

	if !finite(p.Principal) || p.Principal < MinPrincipal {
		errs = append(errs, FieldError{FieldPrincipal, fmt.Sprintf("principal must be at least %g", MinPrincipal)})
	}
	if !finite(p.TenureYears) || p.TenureYears < MinTenureYears {
		errs = append(errs, FieldError{FieldTenure, fmt.Sprintf("tenure must be at least %g year", MinTenureYears)})
	}
	switch {
	case !finite(p.AnnualRatePercent):
		errs = append(errs, FieldError{FieldRate, "interest rate must be a number"})
	case p.AnnualRatePercent < MinRatePercent:
		errs = append(errs, FieldError{FieldRate, fmt.Sprintf("interest rate must be at least %g%%", MinRatePercent)})
	case p.AnnualRatePercent > MaxRatePercent:
		errs = append(errs, FieldError{FieldRate, fmt.Sprintf("interest rate must be at most %g%%", MaxRatePercent)})
	}
	if !p.CompoundingFrequency.Valid() {
		errs = append(errs, FieldError{FieldFrequency, "compounding frequency must be one of " + frequencyList()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Calculate returns the maturity amount and total interest for p.
// Results are not rounded. Inputs whose result overflows float64 are
// rejected as a tenure error.
func Calculate(p models.FDParameters) (models.FDResult, error) {
	if err := Validate(p); err != nil {
		return models.FDResult{}, err
	}

	n := float64(p.CompoundingFrequency.PeriodsPerYear())
	periodicRate := (p.AnnualRatePercent / 100) / n
	maturity := p.Principal * math.Pow(1+periodicRate, n*p.TenureYears)
	interest := maturity - p.Principal
	if !finite(maturity) || !finite(interest) {
		return models.FDResult{}, ValidationErrors{{FieldTenure, "result exceeds representable range"}}
	}

	return models.FDResult{
		MaturityAmount: maturity,
		TotalInterest:  interest,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func frequencyList() string {
	names := make([]string, 0, len(models.Frequencies))
	for _, f := range models.Frequencies {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}
