package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RegisterRequest captures the staff self-registration payload.
// New accounts always start as PENDING staff awaiting approval.
type RegisterRequest struct {
	FullName       string      `json:"full_name" validate:"required,min=2"`
	Email          string      `json:"email" validate:"required,email"`
	Password       string      `json:"password" validate:"required,min=6"`
	Phone          *string     `json:"phone"`
	Gender         Gender      `json:"gender" validate:"required,oneof=MALE FEMALE"`
	DateOfBirth    string      `json:"date_of_birth" validate:"required"`
	Qualification  string      `json:"qualification" validate:"required,min=2"`
	PreferredLevel *ClassLevel `json:"preferred_level" validate:"omitempty,oneof=PRE_KG NURSERY_1 NURSERY_2 BASIC_1 BASIC_2 BASIC_3 BASIC_4 BASIC_5 BASIC_6 JSS_1 JSS_2 JSS_3 SS_1 SS_2 SS_3"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID               string       `json:"id"`
	Email            string       `json:"email"`
	FullName         string       `json:"full_name"`
	Position         UserPosition `json:"position"`
	Status           UserStatus   `json:"status"`
	Section          *Section     `json:"section,omitempty"`
	ManagedSection   *Section     `json:"managed_section,omitempty"`
	IsClassTeacher   bool         `json:"is_class_teacher"`
	IsSubjectTeacher bool         `json:"is_subject_teacher"`
}

// JWTClaims represents the JWT payload for access tokens. The claims carry
// the full authorization context so permission checks never re-read the
// session, only instance-level checks hit the database.
type JWTClaims struct {
	UserID           string       `json:"user_id"`
	Email            string       `json:"email"`
	FullName         string       `json:"full_name"`
	Position         UserPosition `json:"position"`
	Status           UserStatus   `json:"status"`
	Section          *Section     `json:"section,omitempty"`
	ManagedSection   *Section     `json:"managed_section,omitempty"`
	IsClassTeacher   bool         `json:"is_class_teacher"`
	IsSubjectTeacher bool         `json:"is_subject_teacher"`
	AssignedClassID  *string      `json:"assigned_class_id,omitempty"`
	jwt.RegisteredClaims
}
