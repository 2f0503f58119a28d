package models

import "time"

// AcademicSession groups terms into a school year, e.g. "2025/2026".
type AcademicSession struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Term is a subdivision of an academic session. At most one term is active
// process-wide at any point.
type Term struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	SessionID string    `db:"session_id" json:"session_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateSessionRequest is the payload for creating an academic session.
type CreateSessionRequest struct {
	Name      string `json:"name" validate:"required,min=4"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// CreateTermRequest is the payload for creating a term within a session.
type CreateTermRequest struct {
	Name      string `json:"name" validate:"required,min=2"`
	SessionID string `json:"session_id" validate:"required,uuid4"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// TermFilter captures listing criteria for terms.
type TermFilter struct {
	SessionID string
	IsActive  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
