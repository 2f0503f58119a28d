// Package authz implements the attribute-based permission model for the
// portal. Checks are pure functions over a principal snapshot: position,
// section and teacher flags. There is no role hierarchy; every permission
// is an explicit disjunction with default deny.
package authz

import "github.com/landmark-academy/school-portal-api/internal/models"

// Permission names a capability the action layer can require.
type Permission string

const (
	PermManageStaff    Permission = "manage_staff"
	PermAssignStaff    Permission = "assign_staff"
	PermManageClasses  Permission = "manage_classes"
	PermManageSubjects Permission = "manage_subjects"
	PermViewAll        Permission = "view_all"
	PermManageStudents Permission = "manage_students"
	PermInputGrades    Permission = "input_grades"
	PermViewMyClass    Permission = "view_my_class"
	PermViewMySubjects Permission = "view_my_subjects"
)

// Principal is the authorization context evaluated against permissions.
type Principal struct {
	Position         models.UserPosition
	Section          *models.Section
	ManagedSection   *models.Section
	IsClassTeacher   bool
	IsSubjectTeacher bool
}

// FromClaims builds a Principal from JWT claims.
func FromClaims(claims *models.JWTClaims) Principal {
	if claims == nil {
		return Principal{}
	}
	return Principal{
		Position:         claims.Position,
		Section:          claims.Section,
		ManagedSection:   claims.ManagedSection,
		IsClassTeacher:   claims.IsClassTeacher,
		IsSubjectTeacher: claims.IsSubjectTeacher,
	}
}

// FromUser builds a Principal from a freshly loaded user record. Mutating
// operations should prefer this over FromClaims so instance checks see
// current section and assignment state.
func FromUser(user *models.User) Principal {
	if user == nil {
		return Principal{}
	}
	return Principal{
		Position:         user.Position,
		Section:          user.Section,
		ManagedSection:   user.ManagedSection,
		IsClassTeacher:   user.IsClassTeacher,
		IsSubjectTeacher: user.IsSubjectTeacher,
	}
}

func sectionIs(section *models.Section, want models.Section) bool {
	return section != nil && *section == want
}

func isSectionHeadOf(p Principal, target *models.Section) bool {
	if target == nil {
		return false
	}
	switch *target {
	case models.SectionPrimary:
		return p.Position == models.PositionHeadmaster && sectionIs(p.Section, models.SectionPrimary)
	case models.SectionSecondary:
		return p.Position == models.PositionPrincipal && sectionIs(p.Section, models.SectionSecondary)
	default:
		return false
	}
}

// HasPermission evaluates whether the principal holds the permission,
// optionally scoped to a target section. It certifies the capability only;
// instance-level checks (the specific class a class-teacher manages) are the
// caller's responsibility.
func HasPermission(p Principal, permission Permission, targetSection *models.Section) bool {
	switch permission {
	case PermManageStaff:
		return p.Position == models.PositionSuperAdmin

	case PermAssignStaff:
		if p.Position == models.PositionSuperAdmin {
			return true
		}
		return isSectionHeadOf(p, targetSection)

	case PermManageClasses, PermManageSubjects:
		// Section heads only. SUPER_ADMIN is deliberately excluded.
		return isSectionHeadOf(p, targetSection)

	case PermViewAll:
		return p.Position == models.PositionSuperAdmin

	case PermManageStudents:
		if isSectionHeadOf(p, targetSection) {
			return true
		}
		return p.IsClassTeacher

	case PermInputGrades:
		if p.IsSubjectTeacher {
			return true
		}
		if p.Position == models.PositionHeadmaster && sectionIs(p.Section, models.SectionPrimary) {
			return true
		}
		return p.Position == models.PositionPrincipal && sectionIs(p.Section, models.SectionSecondary)

	case PermViewMyClass:
		return p.IsClassTeacher

	case PermViewMySubjects:
		return p.IsSubjectTeacher

	default:
		return false
	}
}

// CanAccessClass reports whether the principal may access the given class.
// SUPER_ADMIN has unconditional access, section heads reach their own
// section, and a class-teacher reaches only their assigned class.
func CanAccessClass(p Principal, classSection models.Section, classID string, assignedClassID *string) bool {
	if p.Position == models.PositionSuperAdmin {
		return true
	}
	if p.Position == models.PositionHeadmaster && classSection == models.SectionPrimary {
		return true
	}
	if p.Position == models.PositionPrincipal && classSection == models.SectionSecondary {
		return true
	}
	if p.IsClassTeacher && assignedClassID != nil && classID != "" && *assignedClassID == classID {
		return true
	}
	return false
}

// IsSectionHead reports whether the principal heads the given section.
func IsSectionHead(p Principal, section models.Section) bool {
	return isSectionHeadOf(p, &section)
}
