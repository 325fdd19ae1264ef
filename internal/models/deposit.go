package models

// FDParameters holds the validated inputs of a fixed deposit calculation
type FDParameters struct {
	Principal            float64   `json:"principal"`
	TenureYears          float64   `json:"tenure_years"`
	AnnualRatePercent    float64   `json:"annual_rate_percent"`
	CompoundingFrequency Frequency `json:"compounding_frequency"`
}

// FDResult holds the outcome of a fixed deposit calculation
type FDResult struct {
	MaturityAmount float64 `json:"maturity_amount"`
	TotalInterest  float64 `json:"total_interest"`
}

// Display holds the two results rounded for presentation
type Display struct {
	MaturityAmount string `json:"maturity_amount"`
	TotalInterest  string `json:"total_interest"`
}

// Quote is a calculation together with its explanation, as shown to the user
type Quote struct {
	Params            FDParameters      `json:"params"`
	Result            FDResult          `json:"result"`
	Display           Display           `json:"display"`
	Explanation       string            `json:"explanation"`
	ExplanationSource ExplanationSource `json:"explanation_source"`
}
