package utils

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/deposit-service/internal/models"
)

// FormatAmount rounds an amount half away from zero to two decimals.
// NaN and infinities are rendered as "NaN", "+Inf" and "-Inf".
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// NewDisplay renders a result for presentation
func NewDisplay(r models.FDResult) models.Display {
	return models.Display{
		MaturityAmount: FormatAmount(r.MaturityAmount),
		TotalInterest:  FormatAmount(r.TotalInterest),
	}
}
