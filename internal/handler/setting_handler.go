package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/response"
	"github.com/stemsi/quizroom-backend/internal/service"
	"github.com/stemsi/quizroom-backend/internal/validator"
)

type SettingHandler struct {
	settingService *service.SettingService
	defaultMinutes int
}

func NewSettingHandler(settingService *service.SettingService, defaultMinutes int) *SettingHandler {
	return &SettingHandler{settingService: settingService, defaultMinutes: defaultMinutes}
}

// GetAllSettings godoc
// GET /api/v1/admin/settings
func (h *SettingHandler) GetAllSettings(c *gin.Context) {
	settings, err := h.settingService.GetAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettings godoc
// PUT /api/v1/admin/settings
func (h *SettingHandler) UpdateSettings(c *gin.Context) {
	var req model.UpdateSettingsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.settingService.Update(c.Request.Context(), req.Settings); err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "settings updated"})
}

// QuizStatus godoc
// GET /api/v1/public/quiz-status
// Reports whether the quiz is live. Failures are reported as not live.
func (h *SettingHandler) QuizStatus(c *gin.Context) {
	qs, err := h.settingService.QuizSettings(c.Request.Context(), h.defaultMinutes)
	if err != nil {
		_ = c.Error(err)
		response.Success(c, http.StatusOK, model.QuizSettings{TimeLimitMinutes: h.defaultMinutes})
		return
	}
	response.Success(c, http.StatusOK, qs)
}
