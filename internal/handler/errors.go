package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizroom-backend/internal/response"
	"github.com/stemsi/quizroom-backend/internal/service"
)

// failService maps a service error to its HTTP status and code. Unknown
// errors become 500.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrEmailTaken):
		response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAlreadyAttempted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAttempted)
	case errors.Is(err, service.ErrNoAttempt):
		response.Fail(c, http.StatusNotFound, response.ErrNoAttempt)
	case errors.Is(err, service.ErrUnknownQuestion), errors.Is(err, service.ErrInvalidOption):
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrInvalidAnswer, err.Error())
	case errors.Is(err, service.ErrInvalidQuestion):
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrInvalidQuestion, err.Error())
	case errors.Is(err, service.ErrInvalidSetting):
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrInvalidSetting, err.Error())
	default:
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
