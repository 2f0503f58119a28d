package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/landmark-academy/school-portal-api/internal/authz"
	"github.com/landmark-academy/school-portal-api/internal/middleware"
	"github.com/landmark-academy/school-portal-api/internal/models"
	"github.com/landmark-academy/school-portal-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	Staff        *StaffHandler
	Class        *ClassHandler
	Subject      *SubjectHandler
	ClassSubject *ClassSubjectHandler
	Student      *StudentHandler
	Result       *ResultStatusHandler
	Term         *TermHandler
	Export       *ExportHandler
}

// Register mounts all portal routes under the API prefix. Authentication
// endpoints stay public, everything else goes through the JWT middleware.
// Position and permission middleware gate the obvious cases, section level
// checks live in the services.
func Register(r *gin.Engine, prefix string, h Handlers, authSvc *service.AuthService, audit middleware.AuditWriter) {
	api := r.Group(prefix)

	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	secured := api.Group("", middleware.JWT(authSvc))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.PUT("/auth/password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)

	staff := secured.Group("/staff")
	{
		staff.GET("", h.Staff.List)
		staff.GET("/:id", h.Staff.Get)

		decisions := staff.Group("", middleware.RequirePositions(models.PositionSuperAdmin))
		decisions.GET("/pending", h.Staff.ListPending)
		decisions.POST("/:id/approve", middleware.Audit(audit, models.AuditActionStaffApprove, "staff"), h.Staff.Approve)
		decisions.POST("/:id/reject", middleware.Audit(audit, models.AuditActionStaffReject, "staff"), h.Staff.Reject)
	}

	classes := secured.Group("/classes")
	{
		classes.GET("", h.Class.List)
		classes.POST("", middleware.RequirePermission(authz.PermManageClasses), h.Class.Create)
		classes.GET("/:id", h.Class.Get)
		classes.DELETE("/:id", middleware.RequirePermission(authz.PermManageClasses), h.Class.Delete)
		classes.PUT("/:id/teacher", middleware.Audit(audit, models.AuditActionClassTeacher, "classes"), h.Class.AssignClassTeacher)

		classes.GET("/:id/subjects", h.ClassSubject.ListByClass)
		classes.POST("/:id/subjects", middleware.RequirePermission(authz.PermManageSubjects), h.ClassSubject.AddSubject)

		classes.GET("/:id/students", h.Student.ListByClass)
		classes.GET("/:id/roster/export", h.Export.Roster)

		classes.GET("/:id/results/status", h.Result.Get)
		classes.POST("/:id/results/submit", h.Result.Submit)
		classes.POST("/:id/results/lock", h.Result.Lock)
		classes.POST("/:id/results/approve", h.Result.Approve)
		classes.POST("/:id/results/reopen", h.Result.Reopen)
	}

	subjects := secured.Group("/subjects")
	{
		subjects.GET("", h.Subject.List)
		subjects.POST("", middleware.RequirePermission(authz.PermManageSubjects), h.Subject.Create)
		subjects.DELETE("/:id", middleware.RequirePermission(authz.PermManageSubjects), h.Subject.Delete)
	}

	secured.DELETE("/class-subjects/:id", middleware.RequirePermission(authz.PermManageSubjects), h.ClassSubject.RemoveSubject)
	secured.POST("/class-subjects/:id/teachers", h.ClassSubject.AssignTeacher)
	secured.DELETE("/subject-assignments/:id", h.ClassSubject.RemoveTeacher)

	students := secured.Group("/students")
	{
		students.POST("", h.Student.Create)
		students.GET("/:id", h.Student.Get)
		students.PUT("/:id", h.Student.Update)
		students.DELETE("/:id", h.Student.Delete)
	}

	secured.GET("/results/status", h.Result.ListByTerm)

	secured.GET("/sessions", h.Term.ListSessions)
	secured.POST("/sessions", middleware.RequirePositions(models.PositionSuperAdmin), h.Term.CreateSession)
	secured.GET("/terms", h.Term.List)
	secured.GET("/terms/active", h.Term.GetActive)
	secured.POST("/terms", middleware.RequirePositions(models.PositionSuperAdmin), h.Term.Create)
	secured.POST("/terms/:id/activate", middleware.RequirePositions(models.PositionSuperAdmin), h.Term.SetActive)
}
