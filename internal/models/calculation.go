package models

import "time"

// Calculation represents a stored deposit calculation. Verified is not
// stored; it is set when the signature is checked on read.
type Calculation struct {
	ID          int64        `json:"id"`
	Owner       string       `json:"owner"`
	Params      FDParameters `json:"params"`
	Result      FDResult     `json:"result"`
	Explanation string       `json:"explanation"`
	Signature   string       `json:"signature"`
	Verified    bool         `json:"verified"`
	CreatedAt   time.Time    `json:"created_at"`
}
