package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nav-in27/timetable-generator/internal/middleware"
	"github.com/nav-in27/timetable-generator/internal/models"
	"github.com/nav-in27/timetable-generator/internal/service"
)

// Handlers bundles every HTTP handler the API mounts.
type Handlers struct {
	Auth          *AuthHandler
	Teachers      *TeacherHandler
	Subjects      *SubjectHandler
	Cohorts       *CohortHandler
	Rooms         *RoomHandler
	Baskets       *ElectiveBasketHandler
	Generation    *GenerationHandler
	FixedSlots    *FixedSlotHandler
	Timetables    *TimetableHandler
	Substitutions *SubstitutionHandler
	Exports       *ExportHandler
	Metrics       *MetricsHandler
}

// RegisterRoutes mounts the full API surface under prefix. Reads require any
// authenticated role; writes require ADMIN or SCHEDULER; user registration is
// ADMIN only. The export download route stays public because its token is
// already signed.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, auth *service.AuthService) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.GET("/exports/download/:token", h.Exports.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(auth))

	writers := authed.Group("")
	writers.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler))

	admins := authed.Group("")
	admins.Use(middleware.RequireRoles(models.RoleAdmin))

	authed.GET("/auth/me", h.Auth.Me)
	admins.POST("/auth/register", h.Auth.Register)

	authed.GET("/teachers", h.Teachers.List)
	authed.GET("/teachers/:id", h.Teachers.Get)
	authed.GET("/teachers/:id/capabilities", h.Teachers.ListCapabilities)
	writers.POST("/teachers", h.Teachers.Create)
	writers.PUT("/teachers/:id", h.Teachers.Update)
	writers.PUT("/teachers/:id/capabilities", h.Teachers.ReplaceCapabilities)
	writers.DELETE("/teachers/:id", h.Teachers.Delete)

	authed.GET("/subjects", h.Subjects.List)
	authed.GET("/subjects/:id", h.Subjects.Get)
	writers.POST("/subjects", h.Subjects.Create)
	writers.PUT("/subjects/:id", h.Subjects.Update)
	writers.DELETE("/subjects/:id", h.Subjects.Delete)

	authed.GET("/cohorts", h.Cohorts.List)
	authed.GET("/cohorts/:id", h.Cohorts.Get)
	writers.POST("/cohorts", h.Cohorts.Create)
	writers.PUT("/cohorts/:id", h.Cohorts.Update)
	writers.DELETE("/cohorts/:id", h.Cohorts.Delete)

	authed.GET("/rooms", h.Rooms.List)
	authed.GET("/rooms/:id", h.Rooms.Get)
	writers.POST("/rooms", h.Rooms.Create)
	writers.PUT("/rooms/:id", h.Rooms.Update)
	writers.DELETE("/rooms/:id", h.Rooms.Delete)

	authed.GET("/baskets", h.Baskets.List)
	authed.GET("/baskets/:id", h.Baskets.Get)
	authed.GET("/baskets/:id/subjects", h.Baskets.Members)
	writers.POST("/baskets", h.Baskets.Create)
	writers.PUT("/baskets/:id", h.Baskets.Update)
	writers.DELETE("/baskets/:id", h.Baskets.Delete)

	writers.POST("/generation/run", h.Generation.Generate)
	authed.GET("/generation/history", h.Generation.History)

	authed.GET("/fixed-slots", h.FixedSlots.List)
	authed.GET("/fixed-slots/:id", h.FixedSlots.Get)
	writers.POST("/fixed-slots/validate", h.FixedSlots.Validate)
	writers.POST("/fixed-slots", h.FixedSlots.Create)
	writers.DELETE("/fixed-slots/:id", h.FixedSlots.Delete)

	authed.GET("/timetables/allocations", h.Timetables.Allocations)
	writers.DELETE("/timetables/allocations", h.Timetables.Clear)
	authed.GET("/timetables/cohorts/:id", h.Timetables.Cohort)
	authed.GET("/timetables/teachers/:id", h.Timetables.Teacher)
	authed.GET("/timetables/rooms/:id", h.Timetables.Room)

	writers.POST("/substitutions/absences", h.Substitutions.ReportAbsence)
	writers.POST("/substitutions/match", h.Substitutions.Match)
	writers.POST("/substitutions/absences/:id/auto-match", h.Substitutions.AutoMatch)
	authed.GET("/substitutions", h.Substitutions.List)
	writers.PUT("/substitutions/:id/status", h.Substitutions.UpdateStatus)

	authed.POST("/exports", h.Exports.Enqueue)
	authed.GET("/exports/:id", h.Exports.Status)
}
