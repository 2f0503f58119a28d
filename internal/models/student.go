package models

import "time"

// Gender enumerates student gender values.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Student represents a pupil enrolled in a class.
type Student struct {
	ID             string    `db:"id" json:"id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	OtherNames     *string   `db:"other_names" json:"other_names,omitempty"`
	Gender         Gender    `db:"gender" json:"gender"`
	DateOfBirth    time.Time `db:"date_of_birth" json:"date_of_birth"`
	ClassID        string    `db:"class_id" json:"class_id"`
	RegistrationNo string    `db:"registration_no" json:"registration_no"`
	GuardianName   *string   `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone  *string   `db:"guardian_phone" json:"guardian_phone,omitempty"`
	Address        *string   `db:"address" json:"address,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CreateStudentRequest is the payload for enrolling a student.
type CreateStudentRequest struct {
	FirstName      string  `json:"first_name" validate:"required,min=2"`
	LastName       string  `json:"last_name" validate:"required,min=2"`
	OtherNames     *string `json:"other_names"`
	Gender         Gender  `json:"gender" validate:"required,oneof=MALE FEMALE"`
	DateOfBirth    string  `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	ClassID        string  `json:"class_id" validate:"required,uuid4"`
	RegistrationNo string  `json:"registration_no" validate:"required,min=3"`
	GuardianName   *string `json:"guardian_name"`
	GuardianPhone  *string `json:"guardian_phone"`
	Address        *string `json:"address"`
}

// UpdateStudentRequest is the payload for editing a student. Nil fields keep
// their stored values.
type UpdateStudentRequest struct {
	FirstName     *string `json:"first_name" validate:"omitempty,min=2"`
	LastName      *string `json:"last_name" validate:"omitempty,min=2"`
	OtherNames    *string `json:"other_names"`
	Gender        *Gender `json:"gender" validate:"omitempty,oneof=MALE FEMALE"`
	DateOfBirth   *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	ClassID       *string `json:"class_id" validate:"omitempty,uuid4"`
	GuardianName  *string `json:"guardian_name"`
	GuardianPhone *string `json:"guardian_phone"`
	Address       *string `json:"address"`
}

// StudentFilter captures listing criteria for students.
type StudentFilter struct {
	ClassID   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
