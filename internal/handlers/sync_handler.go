package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/attempt-engine/internal/models"
	"github.com/prepstack/attempt-engine/internal/services"
	"github.com/prepstack/attempt-engine/internal/utils"
)

// SyncHandler exposes history, statistics, the question library and the
// explicit sync triggers (progress merge, bookmark pull, upload drain).
type SyncHandler struct {
	BaseHandler
	progress   services.ProgressService
	completion services.CompletionService
	library    services.LibraryService
	uploads    services.UploadService
	export     services.ExportService
	validator  *utils.Validator
}

func NewSyncHandler(
	progress services.ProgressService,
	completion services.CompletionService,
	library services.LibraryService,
	uploads services.UploadService,
	export services.ExportService,
	validator *utils.Validator,
	logger utils.Logger,
) *SyncHandler {
	return &SyncHandler{
		BaseHandler: NewBaseHandler(logger),
		progress:    progress,
		completion:  completion,
		library:     library,
		uploads:     uploads,
		export:      export,
		validator:   validator,
	}
}

// ===== SYNC TRIGGERS =====

// SyncProgress merges remote in-progress snapshots into the local store
// POST /api/v1/sync/progress
func (h *SyncHandler) SyncProgress(c *gin.Context) {
	if err := h.progress.SyncProgress(c.Request.Context()); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "progress synced", nil)
}

// SyncUploads drains the pending upload queue
// POST /api/v1/sync/uploads
func (h *SyncHandler) SyncUploads(c *gin.Context) {
	if err := h.uploads.SyncPendingUploads(c.Request.Context()); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "pending uploads synced", nil)
}

// SyncBookmarks pulls remote bookmarks into the local library
// POST /api/v1/sync/bookmarks
func (h *SyncHandler) SyncBookmarks(c *gin.Context) {
	if err := h.library.SyncBookmarks(c.Request.Context()); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "bookmarks synced", nil)
}

// ===== HISTORY =====

// GetHistory returns completed attempts, most recent first
// GET /api/v1/history
func (h *SyncHandler) GetHistory(c *gin.Context) {
	history, err := h.completion.History(c.Request.Context())
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "attempt history", history)
}

// GetStats returns aggregate statistics over completed attempts
// GET /api/v1/history/stats
func (h *SyncHandler) GetStats(c *gin.Context) {
	stats, err := h.completion.Stats(c.Request.Context())
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "attempt statistics", stats)
}

// ExportHistory renders the attempt history as a spreadsheet
// GET /api/v1/history/export?format=xlsx|csv
func (h *SyncHandler) ExportHistory(c *gin.Context) {
	format := c.DefaultQuery("format", "xlsx")

	var (
		data        []byte
		err         error
		contentType string
		filename    string
	)
	switch format {
	case "csv":
		data, err = h.export.ExportHistoryToCSV(c.Request.Context())
		contentType = "text/csv"
		filename = "attempt-history.csv"
	case "xlsx":
		data, err = h.export.ExportHistoryToExcel(c.Request.Context())
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "attempt-history.xlsx"
	default:
		h.RespondWithError(c, http.StatusBadRequest, "unsupported export format", nil)
		return
	}
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}

// ===== LIBRARY =====

type bookmarkRequest struct {
	Question models.Question        `json:"question" validate:"required"`
	TestID   string                 `json:"test_id"`
	Type     models.LibraryItemType `json:"type" validate:"required,library_item_type"`
}

// Bookmark saves a question into the library
// POST /api/v1/library
func (h *SyncHandler) Bookmark(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if h.validator != nil {
		if err := h.validator.Validate(&req); err != nil {
			h.RespondWithServiceError(c, err)
			return
		}
	}

	item, err := h.library.Bookmark(c.Request.Context(), req.Question, req.TestID, req.Type)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusCreated, "question bookmarked", item)
}

// ListLibrary returns library items, optionally filtered by type
// GET /api/v1/library?type=saved|wrong|learn
func (h *SyncHandler) ListLibrary(c *gin.Context) {
	typ := models.LibraryItemType(c.Query("type"))

	items, err := h.library.List(c.Request.Context(), typ)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "library items", items)
}

// RemoveLibraryItem deletes a library item
// DELETE /api/v1/library/:question_id/:type
func (h *SyncHandler) RemoveLibraryItem(c *gin.Context) {
	key := models.LibraryKey{
		QuestionID: c.Param("question_id"),
		Type:       models.LibraryItemType(c.Param("type")),
	}

	if err := h.library.Remove(c.Request.Context(), key); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "library item removed", nil)
}
