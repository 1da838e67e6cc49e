package handlers

import (
	"net/http"

	"github.com/edustack/question-catalog-service/internal/services"
	"github.com/edustack/question-catalog-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type UsageHandler struct {
	BaseHandler
	service services.UsageService
}

func NewUsageHandler(service services.UsageService, logger utils.Logger) *UsageHandler {
	return &UsageHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RecordUsage records a usage event against a question by ID
// @Summary Record question usage
// @Description Record that a question was placed into an exam; idempotent per (question text, college)
// @Tags usage
// @Accept json
// @Produce json
// @Param id path int true "Question ID"
// @Param request body services.RecordUsageRequest true "Usage recording request"
// @Success 200 {object} models.QuestionUsage
// @Failure 404 {object} ErrorResponse "Question not found"
// @Router /questions/{id}/usage [post]
func (h *UsageHandler) RecordUsage(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	var req services.RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	usage, err := h.service.RecordUsage(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, usage)
}

// RecordUsageByText records a usage event, resolving the question by text
// @Summary Record question usage by text
// @Tags usage
// @Accept json
// @Produce json
// @Param request body services.UsageByTextRequest true "Text-resolved usage recording request"
// @Success 200 {object} models.QuestionUsage
// @Failure 404 {object} ErrorResponse "No matching question in the college"
// @Router /questions/usage-by-text [post]
func (h *UsageHandler) RecordUsageByText(c *gin.Context) {
	var req services.UsageByTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	usage, err := h.service.RecordUsageByText(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, usage)
}

// SearchUsageByText returns the cross-college usage summary for a text
// @Summary Usage summary by question text
// @Tags usage
// @Accept json
// @Produce json
// @Success 200 {object} services.UsageSummaryResponse
// @Failure 404 {object} ErrorResponse "No question holds this text"
// @Router /questions/usage-by-text/search [post]
func (h *UsageHandler) SearchUsageByText(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	summary, err := h.service.GetUsageSummaryByText(c.Request.Context(), req.Text)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetUsageHistory lists the usage records of one question
// @Summary Usage history for a question
// @Tags usage
// @Produce json
// @Param id path int true "Question ID"
// @Success 200 {array} models.QuestionUsage
// @Failure 404 {object} ErrorResponse "Question not found"
// @Router /questions/{id}/usage [get]
func (h *UsageHandler) GetUsageHistory(c *gin.Context) {
	id, ok := h.parseIDParam(c)
	if !ok {
		return
	}

	usages, err := h.service.ListByQuestion(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, usages)
}
