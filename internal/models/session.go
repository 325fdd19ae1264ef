package models

import "time"

// SessionView is the latest state of a calculator form session
type SessionView struct {
	SessionID   string            `json:"session_id"`
	Owner       string            `json:"-"`
	Generation  uint64            `json:"generation"`
	Params      FDParameters      `json:"params"`
	Result      FDResult          `json:"result"`
	Display     Display           `json:"display"`
	Explanation string            `json:"explanation"`
	Source      ExplanationSource `json:"explanation_source"`
	Pending     bool              `json:"pending"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
