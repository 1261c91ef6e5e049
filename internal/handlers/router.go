package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/prepstack/attempt-engine/internal/services"
	"github.com/prepstack/attempt-engine/internal/utils"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	syncHandler    *SyncHandler
}

func NewHandlerManager(
	session services.SessionService,
	progress services.ProgressService,
	completion services.CompletionService,
	library services.LibraryService,
	uploads services.UploadService,
	export services.ExportService,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(session, logger),
		syncHandler:    NewSyncHandler(progress, completion, library, uploads, export, validator, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		session := v1.Group("/session")
		{
			session.GET("", hm.sessionHandler.GetSession)
			session.DELETE("", hm.sessionHandler.ResetSession)
			session.POST("/start", hm.sessionHandler.StartTest)
			session.POST("/answer", hm.sessionHandler.SubmitAnswer)
			session.POST("/mark", hm.sessionHandler.ToggleMark)
			session.POST("/next", hm.sessionHandler.NextQuestion)
			session.POST("/prev", hm.sessionHandler.PrevQuestion)
			session.POST("/jump", hm.sessionHandler.JumpToQuestion)
			session.POST("/tick", hm.sessionHandler.TickTimer)
			session.POST("/toggle-timer", hm.sessionHandler.ToggleTimer)
			session.POST("/save", hm.sessionHandler.SaveProgress)
			session.POST("/finish", hm.sessionHandler.FinishTest)
		}

		sync := v1.Group("/sync")
		{
			sync.POST("/progress", hm.syncHandler.SyncProgress)
			sync.POST("/uploads", hm.syncHandler.SyncUploads)
			sync.POST("/bookmarks", hm.syncHandler.SyncBookmarks)
		}

		history := v1.Group("/history")
		{
			history.GET("", hm.syncHandler.GetHistory)
			history.GET("/stats", hm.syncHandler.GetStats)
			history.GET("/export", hm.syncHandler.ExportHistory)
		}

		library := v1.Group("/library")
		{
			library.POST("", hm.syncHandler.Bookmark)
			library.GET("", hm.syncHandler.ListLibrary)
			library.DELETE("/:question_id/:type", hm.syncHandler.RemoveLibraryItem)
		}
	}
}
