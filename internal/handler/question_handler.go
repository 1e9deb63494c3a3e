package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/response"
	"github.com/stemsi/quizroom-backend/internal/service"
	"github.com/stemsi/quizroom-backend/internal/validator"
)

// QuestionHandler serves the question bank to students and administrators.
type QuestionHandler struct {
	questionService *service.QuestionService
	live            LiveChecker
	subjects        []string
}

// LiveChecker reports whether the quiz is currently open to students.
type LiveChecker interface {
	IsLive(ctx context.Context) (bool, error)
}

// NewQuestionHandler creates a new QuestionHandler offering the given subjects.
func NewQuestionHandler(questionService *service.QuestionService, live LiveChecker, subjects []string) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, live: live, subjects: subjects}
}

// Subjects godoc
// GET /api/v1/public/subjects
func (h *QuestionHandler) Subjects(c *gin.Context) {
	subjects, err := h.questionService.Subjects(c.Request.Context(), h.subjects)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// Bank godoc
// GET /api/v1/student/questions
// Returns every question without answers, shuffled per request.
func (h *QuestionHandler) Bank(c *gin.Context) {
	ctx := c.Request.Context()
	if live, err := h.live.IsLive(ctx); err != nil || !live {
		response.Fail(c, http.StatusForbidden, response.ErrQuizNotLive)
		return
	}
	questions, err := h.questionService.Bank(ctx)
	if err != nil {
		failService(c, err)
		return
	}
	if len(questions) == 0 {
		response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ListQuestions godoc
// GET /api/v1/admin/questions?subject=&page=&per_page=
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	var q model.PageQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, pagination, err := h.questionService.List(c.Request.Context(), q.Subject, q.Page, q.PerPage)
	if err != nil {
		failService(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, questions, pagination)
}

// GetQuestion godoc
// GET /api/v1/admin/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}

	q, err := h.questionService.Get(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// CreateQuestion godoc
// POST /api/v1/admin/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.Create(c.Request.Context(), &req)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// UpdateQuestion godoc
// PUT /api/v1/admin/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}

	var req model.QuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// ImportQuestions godoc
// POST /api/v1/admin/questions/import
// Stores a batch of questions. Nothing is stored if any is invalid.
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	var req struct {
		Questions []model.QuestionRequest `json:"questions" binding:"required,min=1,max=2000,dive"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	n, err := h.questionService.Import(c.Request.Context(), req.Questions)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"imported": n})
}

func questionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
