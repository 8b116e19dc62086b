package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mindwell-health/mindwell-api/internal/middleware"
	"github.com/mindwell-health/mindwell-api/internal/models"
	"github.com/mindwell-health/mindwell-api/internal/service"
)

// RouterDeps bundles everything the route table needs. Chat and Exports are
// optional and skipped when nil.
type RouterDeps struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Therapists   *TherapistHandler
	Appointments *AppointmentHandler
	Booking      *BookingHandler
	Chat         *ChatHandler
	Exports      *ExportHandler

	AuthService *service.AuthService
}

// RegisterRoutes mounts the API route table under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, deps RouterDeps) {
	authed := middleware.JWT(deps.AuthService)
	admin := string(models.RoleAdmin)
	therapist := string(models.RoleTherapist)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.Auth.Register)
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/refresh", deps.Auth.Refresh)
		auth.POST("/logout", authed, deps.Auth.Logout)
		auth.POST("/change-password", authed, deps.Auth.ChangePassword)
		auth.GET("/me", authed, deps.Auth.Me)
	}

	therapists := api.Group("/therapists")
	{
		// Directory browsing is public so visitors can pick a therapist
		// before creating an account.
		therapists.GET("", deps.Therapists.List)
		therapists.GET("/:id", deps.Therapists.Get)
		therapists.GET("/:id/slots", deps.Therapists.Slots)

		therapists.POST("", authed, middleware.RBAC(admin), deps.Therapists.Create)
		therapists.PUT("/:id", authed, middleware.RBAC(admin), deps.Therapists.Update)
		therapists.DELETE("/:id", authed, middleware.RBAC(admin), deps.Therapists.Delete)

		therapists.POST("/:id/availability", authed, middleware.RBAC(admin, therapist, middleware.Self), deps.Therapists.AddInterval)
		therapists.PUT("/:id/availability", authed, middleware.RBAC(admin, therapist, middleware.Self), deps.Therapists.ReplaceSchedule)
		therapists.DELETE("/:id/availability/:index", authed, middleware.RBAC(admin, therapist, middleware.Self), deps.Therapists.RemoveInterval)
	}

	appointments := api.Group("/appointments", authed)
	{
		appointments.GET("", middleware.RBAC(admin), deps.Appointments.ListAll)
		appointments.POST("", deps.Appointments.Create)
		appointments.GET("/user/:userId", middleware.RBAC(admin, middleware.Self), deps.Appointments.ListByUser)
		appointments.GET("/therapist/:therapistId", middleware.RBAC(admin, middleware.Self), deps.Appointments.ListByTherapist)
		appointments.GET("/:id", middleware.RBAC(admin, therapist), deps.Appointments.Get)
		appointments.PUT("/:id/status", middleware.RBAC(admin, therapist), deps.Appointments.UpdateStatus)
		appointments.PUT("/:id/notes", middleware.RBAC(admin, therapist), deps.Appointments.UpdateNotes)
	}

	booking := api.Group("/booking", authed)
	{
		booking.GET("/session", deps.Booking.Session)
		booking.PUT("/session", deps.Booking.Update)
		booking.POST("/session/submit", deps.Booking.Submit)
		booking.DELETE("/session", deps.Booking.Reset)
	}

	users := api.Group("/users", authed)
	{
		users.GET("", middleware.RBAC(admin), deps.Users.List)
		users.GET("/:id", middleware.RBAC(admin, middleware.Self), deps.Users.Get)
		users.PUT("/:id", middleware.RBAC(admin, middleware.Self), deps.Users.Update)
		users.DELETE("/:id", middleware.RBAC(admin), deps.Users.Delete)
	}

	if deps.Chat != nil {
		chat := api.Group("/chat", authed)
		chat.POST("", deps.Chat.Send)
		chat.GET("/history/:userId", middleware.RBAC(admin, middleware.Self), deps.Chat.History)
	}

	if deps.Exports != nil {
		exports := api.Group("/exports")
		exports.POST("", authed, deps.Exports.Request)
		exports.GET("/:id", authed, deps.Exports.Status)
		// The signed token is the credential here; links must work from a
		// plain browser download.
		exports.GET("/download/:token", deps.Exports.Download)
	}
}
