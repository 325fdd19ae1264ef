package models

// ExplanationSource tells where an explanation text came from
type ExplanationSource string

const (
	ExplanationGenerated ExplanationSource = "generated"
	ExplanationCached    ExplanationSource = "cache"
	ExplanationFallback  ExplanationSource = "fallback"
	ExplanationPending   ExplanationSource = "pending"
)

// ExplanationRequest is sent verbatim to the text generation service
type ExplanationRequest struct {
	FDParameters
	FDResult
}

// ExplanationResult is the typed outcome of an explanation request
type ExplanationResult struct {
	Explanation string            `json:"explanation"`
	Source      ExplanationSource `json:"source"`
	Failure     error             `json:"-"` // set only when Source is fallback
}

// Failed reports whether the fallback text was used
func (r ExplanationResult) Failed() bool {
	return r.Source == ExplanationFallback
}
