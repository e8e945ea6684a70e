package main

import (
	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/handlers"
	"github.com/harmonix/backend/internal/middleware"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	cfg := svc.cfg
	db := models.GetDB()

	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	// Login and reset requests are the brute-force targets
	authLimiter := middleware.NewRateLimiter(1, 10)

	healthHandler := handlers.NewHealthHandler(db, svc.taskQueue)
	metricsHandler := handlers.NewMetricsHandler(db, svc.taskQueue, svc.emailDeliveries)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", metricsHandler.Metrics)

	accounts := svc.accountsHandler
	reset := handlers.NewPasswordResetHandler(db, cfg, svc.emailDeliveries)
	requireAuth := middleware.AuthRequired(cfg.Session.CookieName)

	// Public account routes
	public := r.Group("/accounts", middleware.AuditLog())
	{
		public.GET("/register", accounts.RegisterForm)
		public.GET("/login", accounts.LoginForm)
		public.GET("/password-reset/done", reset.Done)
		public.GET("/reset/complete", reset.Complete)
		public.GET("/reset/:uidb64/:token", reset.Confirm)
		public.GET("/reset/:uidb64/:token/", reset.Confirm)
		public.GET("/logout", middleware.NoCache(), accounts.Logout)
		public.POST("/logout", middleware.NoCache(), accounts.Logout)

		limited := public.Group("", authLimiter.Middleware())
		limited.POST("/register", accounts.Register)
		limited.POST("/login", accounts.Login)
		limited.POST("/password-reset", reset.RequestReset)
		limited.POST("/reset/:uidb64/:token", reset.SetPassword)
		limited.POST("/reset/:uidb64/:token/", reset.SetPassword)
	}

	// Everything below needs a session; the audit log runs after
	// authentication so entries carry the user.
	protected := r.Group("", requireAuth, middleware.NoCache(), middleware.AuditLog())
	{
		protected.GET("/accounts/me", accounts.Me)
		protected.GET("/accounts/profile/:username", accounts.Profile)

		musician := protected.Group("", middleware.RoleRequired(models.RoleMusician))
		musician.GET("/accounts/musician_profile", accounts.ProfileForm)
		musician.POST("/accounts/musician_profile", accounts.UpdateProfile)

		band := protected.Group("", middleware.RoleRequired(models.RoleBand))
		band.GET("/accounts/band_profile", accounts.ProfileForm)
		band.POST("/accounts/band_profile", accounts.UpdateProfile)

		// Listings
		listingHandler := handlers.NewListingHandler(db, cfg)
		protected.GET("/listings", listingHandler.Feed)
		protected.GET("/listings/", listingHandler.Feed)
		protected.GET("/listings/:id", listingHandler.Detail)
		band.GET("/listings/create", listingHandler.CreateForm)
		band.POST("/listings/create", listingHandler.Create)
		band.GET("/listings/:id/edit", listingHandler.EditForm)
		band.POST("/listings/:id/edit", listingHandler.Update)
		band.POST("/listings/:id/delete", listingHandler.Delete)

		// Applications
		applicationHandler := handlers.NewApplicationHandler(db)
		protected.POST("/applications/apply/:listing_id", applicationHandler.Apply)
		band.POST("/applications/status/:id", applicationHandler.UpdateStatus)
		musician.POST("/applications/withdraw/:id", applicationHandler.Withdraw)
		protected.GET("/applications/my-applications", applicationHandler.MyApplications)

		// Invitations
		invitationHandler := handlers.NewInvitationHandler(db)
		band.GET("/invitations/invite", invitationHandler.InvitePage)
		protected.POST("/invitations/send", invitationHandler.Send)
		band.GET("/invitations/sent", invitationHandler.Sent)
		musician.GET("/invitations/received", invitationHandler.Received)
		musician.POST("/invitations/respond", invitationHandler.Respond)
		protected.GET("/invitations/listing/:id", invitationHandler.ListingDetail)

		// Administration
		admin := protected.Group("/admin", middleware.AdminRequired())
		systemLogHandler := handlers.NewSystemLogHandler(db)
		admin.GET("/system-logs", systemLogHandler.List)
		admin.GET("/system-logs/modules", systemLogHandler.GetModules)

		emailDeliveryHandler := handlers.NewEmailDeliveryHandler(svc.emailDeliveries)
		admin.GET("/email-deliveries", emailDeliveryHandler.List)
		admin.POST("/email-deliveries/:id/retry", emailDeliveryHandler.Retry)
	}
}
