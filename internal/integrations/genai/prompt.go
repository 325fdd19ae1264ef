package genai

import (
	"bytes"
	"text/template"

	"github.com/Dan9191/deposit-service/internal/models"
	"github.com/Dan9191/deposit-service/internal/utils"
)

const systemPrompt = "You are a friendly financial advisor at a retail bank. " +
	"You explain fixed deposit calculations in plain language for customers without a finance background. " +
	"Be accurate with the numbers you are given and never invent new ones."

var promptTemplate = template.Must(template.New("fd-explanation").Parse(
	`Explain the following fixed deposit calculation to a customer.

DEPOSIT:
- Principal: {{.Principal}}
- Tenure: {{.Tenure}} years
- Annual interest rate: {{.Rate}}%
- Compounding frequency: {{.Frequency}} ({{.Periods}} times per year)

RESULT:
- Maturity amount: {{.Maturity}}
- Total interest earned: {{.Interest}}

INSTRUCTIONS:
1. Describe how compounding {{.FrequencyLower}} grows the deposit over the tenure.
2. Mention the maturity amount and the total interest exactly as given.
3. Keep it to 3-4 short sentences.

Reply with a JSON object that has a single string field "explanation".`))

type promptData struct {
	Principal      string
	Tenure         string
	Rate           string
	Frequency      string
	FrequencyLower string
	Periods        int
	Maturity       string
	Interest       string
}

// BuildPrompt renders the user prompt for an explanation request
func BuildPrompt(req models.ExplanationRequest) (string, error) {
	freq := req.CompoundingFrequency.String()
	data := promptData{
		Principal:      utils.FormatAmount(req.Principal),
		Tenure:         trimFloat(req.TenureYears),
		Rate:           trimFloat(req.AnnualRatePercent),
		Frequency:      freq,
		FrequencyLower: frequencyAdverb(req.CompoundingFrequency),
		Periods:        req.CompoundingFrequency.PeriodsPerYear(),
		Maturity:       utils.FormatAmount(req.MaturityAmount),
		Interest:       utils.FormatAmount(req.TotalInterest),
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func frequencyAdverb(f models.Frequency) string {
	switch f {
	case models.Annually:
		return "annually"
	case models.SemiAnnually:
		return "semi-annually"
	case models.Quarterly:
		return "quarterly"
	case models.Monthly:
		return "monthly"
	}
	return f.String()
}
