package models

import "time"

// ClassLevel enumerates the academic levels across both sections.
type ClassLevel string

const (
	LevelPreKG    ClassLevel = "PRE_KG"
	LevelNursery1 ClassLevel = "NURSERY_1"
	LevelNursery2 ClassLevel = "NURSERY_2"
	LevelBasic1   ClassLevel = "BASIC_1"
	LevelBasic2   ClassLevel = "BASIC_2"
	LevelBasic3   ClassLevel = "BASIC_3"
	LevelBasic4   ClassLevel = "BASIC_4"
	LevelBasic5   ClassLevel = "BASIC_5"
	LevelBasic6   ClassLevel = "BASIC_6"
	LevelJSS1     ClassLevel = "JSS_1"
	LevelJSS2     ClassLevel = "JSS_2"
	LevelJSS3     ClassLevel = "JSS_3"
	LevelSS1      ClassLevel = "SS_1"
	LevelSS2      ClassLevel = "SS_2"
	LevelSS3      ClassLevel = "SS_3"
)

var primaryLevels = map[ClassLevel]struct{}{
	LevelPreKG: {}, LevelNursery1: {}, LevelNursery2: {},
	LevelBasic1: {}, LevelBasic2: {}, LevelBasic3: {},
	LevelBasic4: {}, LevelBasic5: {}, LevelBasic6: {},
}

var secondaryLevels = map[ClassLevel]struct{}{
	LevelJSS1: {}, LevelJSS2: {}, LevelJSS3: {},
	LevelSS1: {}, LevelSS2: {}, LevelSS3: {},
}

// LevelBelongsToSection reports whether the level is valid for the section.
func LevelBelongsToSection(level ClassLevel, section Section) bool {
	switch section {
	case SectionPrimary:
		_, ok := primaryLevels[level]
		return ok
	case SectionSecondary:
		_, ok := secondaryLevels[level]
		return ok
	default:
		return false
	}
}

// Class represents a homeroom class within a section.
type Class struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Level          ClassLevel `db:"level" json:"level"`
	Section        Section    `db:"section" json:"section"`
	ClassTeacherID *string    `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// ClassDetail joins the class with its teacher name and student count.
type ClassDetail struct {
	Class
	ClassTeacherName *string `db:"class_teacher_name" json:"class_teacher_name,omitempty"`
	StudentCount     int     `db:"student_count" json:"student_count"`
}

// CreateClassRequest is the payload for creating a class.
type CreateClassRequest struct {
	Name    string     `json:"name" validate:"required,min=2"`
	Level   ClassLevel `json:"level" validate:"required"`
	Section Section    `json:"section" validate:"required,oneof=PRIMARY SECONDARY"`
}

// AssignClassTeacherRequest nominates a class teacher. An empty teacher ID
// removes the current class teacher.
type AssignClassTeacherRequest struct {
	TeacherID string `json:"teacher_id"`
}

// ClassFilter captures listing criteria for classes.
type ClassFilter struct {
	Section   Section
	Level     ClassLevel
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
