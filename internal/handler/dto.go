package handler

import (
	"github.com/Dan9191/deposit-service/internal/calculator"
	"github.com/Dan9191/deposit-service/internal/models"
)

// DepositRequest is the calculator form as submitted by the client.
// The frequency stays a string so that an unknown name is reported as a
// field error instead of a malformed body.
type DepositRequest struct {
	Principal            float64 `json:"principal"`
	TenureYears          float64 `json:"tenure_years"`
	AnnualRatePercent    float64 `json:"annual_rate_percent"`
	CompoundingFrequency string  `json:"compounding_frequency"`
}

func (r DepositRequest) toParams() models.FDParameters {
	freq, err := models.ParseFrequency(r.CompoundingFrequency)
	if err != nil {
		freq = models.FrequencyUnknown
	}
	return models.FDParameters{
		Principal:            r.Principal,
		TenureYears:          r.TenureYears,
		AnnualRatePercent:    r.AnnualRatePercent,
		CompoundingFrequency: freq,
	}
}

// EmailRequest asks for a calculation summary to be mailed to To
type EmailRequest struct {
	To     string         `json:"to"`
	Params DepositRequest `json:"params"`
}

type EmailResponse struct {
	Status string       `json:"status"`
	Quote  models.Quote `json:"quote"`
}

type HistoryResponse struct {
	Calculations []models.Calculation `json:"calculations"`
}

type ErrorResponse struct {
	Error   string                  `json:"error"`
	Details string                  `json:"details,omitempty"`
	Fields  []calculator.FieldError `json:"fields,omitempty"`
}
