package models

import "time"

// ResultStatus enumerates the per-class-per-term result workflow states.
type ResultStatus string

const (
	ResultOpen      ResultStatus = "OPEN"
	ResultSubmitted ResultStatus = "SUBMITTED"
	ResultLocked    ResultStatus = "LOCKED"
	ResultApproved  ResultStatus = "APPROVED"
)

// Valid reports whether the value is a known result status.
func (s ResultStatus) Valid() bool {
	switch s {
	case ResultOpen, ResultSubmitted, ResultLocked, ResultApproved:
		return true
	default:
		return false
	}
}

// ResultTransitionRequest names the term a class result transition targets.
type ResultTransitionRequest struct {
	TermID string `json:"term_id" validate:"omitempty,uuid4"`
}

// ClassTermStatus tracks the result workflow for a (class, term) pair.
// Absence of a row is equivalent to status OPEN.
type ClassTermStatus struct {
	ID          string       `db:"id" json:"id"`
	ClassID     string       `db:"class_id" json:"class_id"`
	TermID      string       `db:"term_id" json:"term_id"`
	Status      ResultStatus `db:"status" json:"status"`
	SubmittedAt *time.Time   `db:"submitted_at" json:"submitted_at,omitempty"`
	LockedAt    *time.Time   `db:"locked_at" json:"locked_at,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}
