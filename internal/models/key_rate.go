package models

import "time"

// KeyRate represents the central bank key rate on a given date
type KeyRate struct {
	Date time.Time `json:"date"`
	Rate float64   `json:"key_rate"`
}
