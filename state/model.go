package state

import (
	"time"

	"github.com/calehh/impact-app/types"
)

// sqlite models

type Submission struct {
	Id           string       `gorm:"primary_key" json:"id"`
	UserAddress  string       `gorm:"not null;index" json:"user_address"`
	ActionType   string       `gorm:"not null" json:"action_type"`
	Description  *string      `json:"description"`
	ProofUrl     string       `gorm:"not null" json:"proof_url"`
	LocationCell *string      `json:"location_cell"`
	Status       types.Status `gorm:"not null;index" json:"status"`
	Points       *int64       `json:"points"`
	TxHash       *string      `json:"tx_hash"`
	CreatedAt    time.Time    `gorm:"index" json:"created_at"`
}

func (s *Submission) Pending() bool {
	return s.Status == types.StatusPending
}

// NewSubmission carries the submitter supplied fields of a claim.
type NewSubmission struct {
	UserAddress  string `json:"user_address"`
	ActionType   string `json:"action_type"`
	Description  string `json:"description"`
	ProofUrl     string `json:"proof_url"`
	LocationCell string `json:"location_cell"`
}

type ListOptions struct {
	Status   types.Status
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
