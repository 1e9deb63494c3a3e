package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/response"
	"github.com/stemsi/quizroom-backend/internal/service"
	"github.com/stemsi/quizroom-backend/internal/validator"
)

// AdminHandler handles attempt review and reset.
type AdminHandler struct {
	attemptService   *service.AttemptService
	violationService *service.ViolationService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(attemptService *service.AttemptService, violationService *service.ViolationService) *AdminHandler {
	return &AdminHandler{attemptService: attemptService, violationService: violationService}
}

// ListAttempts godoc
// GET /api/v1/admin/attempts?page=&per_page=
func (h *AdminHandler) ListAttempts(c *gin.Context) {
	var q model.PageQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempts, pagination, err := h.attemptService.List(c.Request.Context(), q.Page, q.PerPage)
	if err != nil {
		failService(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, attempts, pagination)
}

// ResetAttempt godoc
// DELETE /api/v1/admin/attempts/:user_id
// Lets the student take the quiz again.
func (h *AdminHandler) ResetAttempt(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	if err := h.attemptService.Reset(c.Request.Context(), userID); err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reset": userID})
}

// GetViolations godoc
// GET /api/v1/admin/violations/:user_id
func (h *AdminHandler) GetViolations(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	report, err := h.violationService.Report(c.Request.Context(), userID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

func userIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("user_id"))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
