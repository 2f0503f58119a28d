package models

import "time"

// UserPosition represents a staff member's administrative role.
type UserPosition string

const (
	PositionSuperAdmin UserPosition = "SUPER_ADMIN"
	PositionHeadmaster UserPosition = "HEADMASTER"
	PositionPrincipal  UserPosition = "PRINCIPAL"
	PositionStaff      UserPosition = "STAFF"
)

// UserStatus captures the approval lifecycle of a registered user.
type UserStatus string

const (
	StatusPending   UserStatus = "PENDING"
	StatusApproved  UserStatus = "APPROVED"
	StatusRejected  UserStatus = "REJECTED"
	StatusSuspended UserStatus = "SUSPENDED"
)

// Section is the top-level school division scoping staff, classes and subjects.
type Section string

const (
	SectionPrimary   Section = "PRIMARY"
	SectionSecondary Section = "SECONDARY"
)

// User represents a staff account stored in the users table.
type User struct {
	ID               string       `db:"id" json:"id"`
	Email            string       `db:"email" json:"email"`
	PasswordHash     string       `db:"password_hash" json:"-"`
	FullName         string       `db:"full_name" json:"full_name"`
	Phone            *string      `db:"phone" json:"phone,omitempty"`
	Position         UserPosition `db:"position" json:"position"`
	Status           UserStatus   `db:"status" json:"status"`
	Section          *Section     `db:"section" json:"section,omitempty"`
	ManagedSection   *Section     `db:"managed_section" json:"managed_section,omitempty"`
	IsClassTeacher   bool         `db:"is_class_teacher" json:"is_class_teacher"`
	IsSubjectTeacher bool         `db:"is_subject_teacher" json:"is_subject_teacher"`
	AssignedClassID  *string      `db:"assigned_class_id" json:"assigned_class_id,omitempty"`
	Gender           *Gender      `db:"gender" json:"gender,omitempty"`
	DateOfBirth      *time.Time   `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Qualification    *string      `db:"qualification" json:"qualification,omitempty"`
	PreferredLevel   *ClassLevel  `db:"preferred_level" json:"preferred_level,omitempty"`
	ApprovedByID     *string      `db:"approved_by_id" json:"approved_by_id,omitempty"`
	ApprovedAt       *time.Time   `db:"approved_at" json:"approved_at,omitempty"`
	LastLogin        *time.Time   `db:"last_login" json:"last_login,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// ManagedSectionFor derives the section a position administers.
// Only HEADMASTER and PRINCIPAL manage a section.
func ManagedSectionFor(position UserPosition) *Section {
	switch position {
	case PositionHeadmaster:
		s := SectionPrimary
		return &s
	case PositionPrincipal:
		s := SectionSecondary
		return &s
	default:
		return nil
	}
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Position  *UserPosition
	Status    *UserStatus
	Section   *Section
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ApproveStaffRequest carries the approval decision for a pending account.
// Position defaults to STAFF when omitted. Section is required when the
// final position is STAFF and ignored for SUPER_ADMIN.
type ApproveStaffRequest struct {
	Position UserPosition `json:"position" validate:"omitempty,oneof=SUPER_ADMIN HEADMASTER PRINCIPAL STAFF"`
	Section  *Section     `json:"section" validate:"omitempty,oneof=PRIMARY SECONDARY"`
}

// RejectStaffRequest carries an optional reason for rejecting a registration.
type RejectStaffRequest struct {
	Reason string `json:"reason"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
