package models

import "time"

// Subject represents a taught subject within a section. Name and code are
// globally unique across sections in the current schema.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	Section   Section   `db:"section" json:"section"`
	IsCore    bool      `db:"is_core" json:"is_core"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateSubjectRequest is the payload for creating a subject.
type CreateSubjectRequest struct {
	Name    string  `json:"name" validate:"required,min=2"`
	Code    string  `json:"code" validate:"required,min=2,max=10"`
	Section Section `json:"section" validate:"required,oneof=PRIMARY SECONDARY"`
	IsCore  bool    `json:"is_core"`
}

// SubjectFilter captures listing criteria for subjects.
type SubjectFilter struct {
	Section   Section
	IsCore    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
