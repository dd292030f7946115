package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/middleware"
	"github.com/noah-isme/campus-records-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth       *AuthHandler
	Sessions   *SessionHandler
	Attendance *AttendanceHandler
	Subjects   *SubjectHandler
	Grades     *GradeHandler
	Documents  *DocumentRequestHandler
	Schedules  *ScheduleHandler
	Roster     *RosterHandler
	Assistant  *AssistantHandler

	Accounts      *AccountHandler
	Announcements *AnnouncementHandler
	Materials     *MaterialHandler
}

// RouteDeps are the cross-cutting collaborators of the route table.
type RouteDeps struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditWriter
}

// RegisterRoutes mounts the API on the given group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, deps RouteDeps) {
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/documents/download",
		middleware.Audit(deps.Audit, models.AuditActionDocumentDownload, "document"),
		h.Documents.Download,
	)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.Tokens))
	authed.GET("/auth/me", h.Auth.Me)
	authed.GET("/schedules", h.Schedules.List)
	authed.GET("/document-requests/:id/link", h.Documents.Link)
	authed.GET("/announcements", h.Announcements.List)

	teacher := authed.Group("/teacher")
	teacher.Use(middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
	{
		teacher.GET("/sessions", h.Sessions.List)
		teacher.POST("/sessions/students", h.Sessions.Students)
		teacher.POST("/attendance", h.Attendance.Submit)
		teacher.POST("/grading-sheet", h.Subjects.GradingSheet)
		teacher.PUT("/subjects/:id/weights", h.Subjects.UpdateWeights)
		teacher.POST("/subjects/:id/columns", h.Subjects.AddColumn)
		teacher.DELETE("/subjects/:id/columns/:columnId", h.Subjects.DeleteColumn)
		teacher.PUT("/subjects/:id/marks", h.Grades.SaveMarks)
		teacher.POST("/materials", h.Materials.Upload)
		teacher.GET("/materials/options", h.Materials.Options)
	}

	student := authed.Group("/student")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/grades", h.Grades.Report)
		student.GET("/grades/transcript.pdf",
			middleware.Audit(deps.Audit, models.AuditActionTranscriptExport, "transcript"),
			h.Grades.Transcript,
		)
		student.GET("/attendance", h.Attendance.Mine)
		student.GET("/subjects", h.Subjects.Mine)
		student.POST("/document-requests", h.Documents.Create)
		student.GET("/document-requests", h.Documents.Mine)
		student.GET("/profile", h.Accounts.Profile)
		student.GET("/materials/:subject", h.Materials.ListForStudent)
	}

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/schedules", h.Schedules.Upload)
		admin.GET("/absences", h.Attendance.Absences)
		admin.GET("/absences.csv",
			middleware.Audit(deps.Audit, models.AuditActionAbsenceExport, "attendance"),
			h.Attendance.AbsencesCSV,
		)
		admin.GET("/document-requests", h.Documents.All)
		admin.POST("/document-requests/:id/complete", h.Documents.Complete)
		admin.POST("/document-requests/:id/reject", h.Documents.Reject)
		admin.POST("/roster/:role", h.Roster.Import)
		admin.PUT("/staff/:id/assignments", h.Roster.SetAssignments)
		admin.GET("/users/:role", h.Accounts.List)
		admin.POST("/users/:role", h.Accounts.Create)
		admin.PUT("/users/:role/:id", h.Accounts.Update)
		admin.DELETE("/users/:role/:id", h.Accounts.Delete)
		admin.POST("/announcements", h.Announcements.Post)
	}

	assist := authed.Group("/assistant")
	{
		assist.POST("/summary", h.Assistant.Summary)
		assist.POST("/plan", h.Assistant.Plan)
		assist.POST("/quiz", h.Assistant.Quiz)
		assist.POST("/quiz/grade", h.Assistant.GradeQuiz)
		assist.POST("/quiz/hint", h.Assistant.QuizHint)
		assist.GET("/quiz/:id", h.Assistant.GetQuiz)
		assist.POST("/chat", h.Assistant.Chat)
		assist.POST("/chat/reset", h.Assistant.ResetChat)
		assist.GET("/conversations", h.Assistant.Conversations)
		assist.GET("/conversations/:id", h.Assistant.Conversation)
	}
}
