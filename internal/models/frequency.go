package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Frequency is how often interest is compounded within a year
type Frequency int

const (
	FrequencyUnknown Frequency = iota
	Annually
	SemiAnnually
	Quarterly
	Monthly
)

// Frequencies lists the supported compounding frequencies in display order
var Frequencies = []Frequency{Annually, SemiAnnually, Quarterly, Monthly}

var frequencyNames = map[Frequency]string{
	Annually:     "Annually",
	SemiAnnually: "SemiAnnually",
	Quarterly:    "Quarterly",
	Monthly:      "Monthly",
}

var periodsPerYear = map[Frequency]int{
	Annually:     1,
	SemiAnnually: 2,
	Quarterly:    4,
	Monthly:      12,
}

// PeriodsPerYear returns the number of compounding periods in one year, or 0
// for an unknown frequency
func (f Frequency) PeriodsPerYear() int {
	return periodsPerYear[f]
}

// Valid reports whether f is one of the supported frequencies
func (f Frequency) Valid() bool {
	_, ok := periodsPerYear[f]
	return ok
}

func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// ParseFrequency resolves a frequency name, ignoring case and separators
func ParseFrequency(s string) (Frequency, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "", "_", "", " ", "").Replace(normalized)
	switch normalized {
	case "annually", "yearly":
		return Annually, nil
	case "semiannually", "halfyearly":
		return SemiAnnually, nil
	case "quarterly":
		return Quarterly, nil
	case "monthly":
		return Monthly, nil
	}
	return FrequencyUnknown, fmt.Errorf("unknown compounding frequency %q", s)
}

// MarshalJSON encodes the frequency by name
func (f Frequency) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return json.Marshal("")
	}
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes a frequency name
func (f *Frequency) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("compounding frequency must be a string: %w", err)
	}
	parsed, err := ParseFrequency(name)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
