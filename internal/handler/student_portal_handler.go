package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizroom-backend/internal/middleware"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/response"
	"github.com/stemsi/quizroom-backend/internal/service"
	"github.com/stemsi/quizroom-backend/internal/validator"
)

// StudentPortalHandler handles the quiz endpoints a student client calls
// directly.
type StudentPortalHandler struct {
	attemptService *service.AttemptService
	resultService  *service.ResultService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(attemptService *service.AttemptService, resultService *service.ResultService) *StudentPortalHandler {
	return &StudentPortalHandler{
		attemptService: attemptService,
		resultService:  resultService,
	}
}

// GetAttempt godoc
// GET /api/v1/student/attempt
// Reports whether the student already submitted, and the auto-saved answers otherwise.
func (h *StudentPortalHandler) GetAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	prior, err := h.attemptService.Prior(c.Request.Context(), claims.UserID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, prior)
}

// Autosave godoc
// POST /api/v1/student/answers
func (h *StudentPortalHandler) Autosave(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.AutosaveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.Autosave(c.Request.Context(), claims.UserID, req.QuestionID, req.OptionID); err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// RecordStartTime godoc
// POST /api/v1/student/start-time
// Only the first reported start time is kept.
func (h *StudentPortalHandler) RecordStartTime(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartTimeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.RecordStart(c.Request.Context(), claims.UserID, req.StartTime); err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "recorded"})
}

// Submit godoc
// POST /api/v1/student/submit
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.Submission
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, attempt)
}

// GetResults godoc
// GET /api/v1/student/results
func (h *StudentPortalHandler) GetResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.resultService.GetResults(c.Request.Context(), claims.UserID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, results)
}
