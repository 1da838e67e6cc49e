package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/edustack/question-catalog-service/internal/models"
	"github.com/edustack/question-catalog-service/internal/repositories"
	"github.com/edustack/question-catalog-service/internal/services"
	"github.com/edustack/question-catalog-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	BaseHandler
	service services.QuestionService
	export  services.ExportService
}

func NewQuestionHandler(service services.QuestionService, export services.ExportService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		export:      export,
	}
}

// ===== CORE CRUD ENDPOINTS =====

// CreateQuestion creates a new question after duplicate resolution
// @Summary Create a new question
// @Description Create a question; exact duplicates in the same college and near-duplicates above the threshold are rejected with structured details
// @Tags questions
// @Accept json
// @Produce json
// @Param request body services.CreateQuestionRequest true "Question creation request"
// @Success 201 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse "Validation failure, duplicate or similar question"
// @Failure 503 {object} ErrorResponse "Similarity backend unavailable"
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetQuestion retrieves a question by ID
// @Summary Get a question
// @Tags questions
// @Produce json
// @Param id path int true "Question ID"
// @Success 200 {object} services.QuestionResponse
// @Failure 404 {object} ErrorResponse "Question not found"
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateQuestion updates a question
// @Summary Update a question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path int true "Question ID"
// @Param request body services.UpdateQuestionRequest true "Question update request"
// @Success 200 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse "Validation failure or duplicate"
// @Failure 404 {object} ErrorResponse "Question not found"
// @Router /questions/{id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteQuestion removes a question and its usage records
// @Summary Delete a question
// @Tags questions
// @Param id path int true "Question ID"
// @Success 204 "Deleted"
// @Failure 404 {object} ErrorResponse "Question not found"
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ArchiveQuestion transitions a question to Archived
// @Summary Archive a question
// @Tags questions
// @Param id path int true "Question ID"
// @Success 204 "Archived"
// @Failure 404 {object} ErrorResponse "Question not found"
// @Router /questions/{id}/archive [post]
func (h *QuestionHandler) ArchiveQuestion(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Archive(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListQuestions lists questions with filters and pagination
// @Summary List questions
// @Tags questions
// @Produce json
// @Param subject query string false "Filter by subject"
// @Param exam_type query string false "Filter by exam type"
// @Param college query string false "Filter by college"
// @Param status query string false "Filter by status"
// @Param difficulty query string false "Filter by difficulty"
// @Param search query string false "Text search"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.QuestionListResponse
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	filters := parseQuestionFilters(c)

	resp, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CheckSimilarity performs a read-only duplicate check
// @Summary Check a text for duplicates and near-duplicates
// @Tags questions
// @Accept json
// @Produce json
// @Param request body services.SimilarityCheckRequest true "Similarity check request"
// @Success 200 {object} services.SimilarityCheckResponse
// @Failure 503 {object} ErrorResponse "Similarity backend unavailable"
// @Router /questions/check-similarity [post]
func (h *QuestionHandler) CheckSimilarity(c *gin.Context) {
	var req services.SimilarityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.service.CheckSimilarity(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportQuestions streams the filtered question list as an xlsx workbook
// @Summary Export questions to Excel
// @Tags questions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /questions/export [get]
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	filters := parseQuestionFilters(c)

	data, filename, err := h.export.ExportQuestions(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// parseQuestionFilters extracts list filters from query parameters
func parseQuestionFilters(c *gin.Context) repositories.QuestionFilters {
	var filters repositories.QuestionFilters

	if v := c.Query("subject"); v != "" {
		filters.Subject = &v
	}
	if v := c.Query("exam_type"); v != "" {
		filters.ExamType = &v
	}
	if v := c.Query("college"); v != "" {
		filters.College = &v
	}
	if v := c.Query("status"); v != "" {
		status := models.QuestionStatus(v)
		filters.Status = &status
	}
	if v := c.Query("difficulty"); v != "" {
		difficulty := models.DifficultyLevel(v)
		filters.Difficulty = &difficulty
	}
	if v := c.Query("search"); v != "" {
		filters.SearchText = &v
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if size < 1 || size > 200 {
		size = 20
	}
	filters.Limit = size
	filters.Offset = (page - 1) * size
	filters.SortBy = c.DefaultQuery("sort_by", "created_at")
	filters.SortOrder = c.DefaultQuery("sort_order", "desc")

	return filters
}
