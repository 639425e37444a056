package handler

import "github.com/gin-gonic/gin"

// Handlers groups every endpoint handler
type Handlers struct {
	Status     *StatusHandler
	Auth       *AuthHandler
	GDPR       *GDPRHandler
	Session    *SessionHandler
	Turn       *TurnHandler
	Location   *LocationHandler
	Report     *ReportHandler
	Health     *HealthHandler
	Medication *MedicationHandler
}

// RegisterRoutes mounts the API on r
func RegisterRoutes(r gin.IRouter, h Handlers) {
	r.GET("/health", h.Status.GetHealth)

	v1 := r.Group("/api/v1")

	v1.GET("/languages", h.Auth.ListLanguages)
	v1.POST("/auth/code", h.Auth.RequestCode)
	v1.POST("/auth/verify", h.Auth.Verify)
	v1.POST("/auth/register", h.Auth.Register)
	v1.POST("/auth/logout", h.Auth.Logout)
	v1.GET("/profile", h.Auth.GetProfile)
	v1.PUT("/profile", h.Auth.UpdateProfile)
	v1.PUT("/profile/language", h.Auth.SetLanguage)

	v1.GET("/account/export", h.GDPR.ExportUserData)
	v1.DELETE("/account/data", h.GDPR.DeleteUserData)
	v1.GET("/account/audit", h.GDPR.ListAudit)

	v1.GET("/sessions", h.Session.ListSessions)
	v1.POST("/sessions", h.Session.CreateSession)
	v1.POST("/sessions/reset", h.Session.ResetSession)
	v1.POST("/sessions/:id/select", h.Session.SelectSession)
	v1.GET("/conversation", h.Session.Conversation)

	v1.POST("/turns", h.Turn.SubmitTurn)
	v1.POST("/turns/voice", h.Turn.SubmitVoice)
	v1.POST("/care", h.Turn.FindCare)
	v1.POST("/speech", h.Turn.SynthesizeSpeech)

	v1.GET("/location", h.Location.GetLocation)
	v1.PUT("/location", h.Location.SetLocation)

	v1.POST("/report", h.Report.GenerateReport)
	v1.GET("/reports", h.Report.ListReports)
	v1.GET("/reports/download", h.Report.DownloadReport)
	v1.GET("/share", h.Report.ShareConversation)

	v1.GET("/symptoms", h.Health.ListSymptoms)
	v1.POST("/symptoms", h.Health.AddSymptom)
	v1.GET("/symptoms/export", h.Health.ExportSymptoms)
	v1.DELETE("/symptoms/:id", h.Health.DeleteSymptom)

	v1.GET("/reminders", h.Medication.ListReminders)
	v1.POST("/reminders", h.Medication.AddReminder)
	v1.DELETE("/reminders/:id", h.Medication.DeleteReminder)
}
