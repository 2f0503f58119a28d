package models

import "time"

// ClassSubject records that a subject is taught in a class.
type ClassSubject struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SubjectAssignment links a teacher to a class-subject pairing. Multiple
// teachers may be assigned to the same class-subject.
type SubjectAssignment struct {
	ID             string    `db:"id" json:"id"`
	ClassSubjectID string    `db:"class_subject_id" json:"class_subject_id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	AssignedByID   *string   `db:"assigned_by_id" json:"assigned_by_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// AssignedTeacher is the teacher projection embedded in class-subject detail.
type AssignedTeacher struct {
	AssignmentID string `db:"assignment_id" json:"assignment_id"`
	TeacherID    string `db:"teacher_id" json:"teacher_id"`
	FullName     string `db:"full_name" json:"full_name"`
}

// AddClassSubjectRequest attaches a subject to a class.
type AddClassSubjectRequest struct {
	SubjectID string `json:"subject_id" validate:"required,uuid4"`
}

// AssignSubjectTeacherRequest assigns a teacher to a class-subject mapping.
type AssignSubjectTeacherRequest struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid4"`
}

// ClassSubjectDetail joins the mapping with its subject and assigned teachers.
type ClassSubjectDetail struct {
	ID          string            `db:"id" json:"id"`
	ClassID     string            `db:"class_id" json:"class_id"`
	SubjectID   string            `db:"subject_id" json:"subject_id"`
	SubjectName string            `db:"subject_name" json:"subject_name"`
	SubjectCode string            `db:"subject_code" json:"subject_code"`
	IsCore      bool              `db:"is_core" json:"is_core"`
	Teachers    []AssignedTeacher `json:"teachers"`
}
