package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/edustack/question-catalog-service/internal/repositories"
	"github.com/edustack/question-catalog-service/internal/services"
	"github.com/edustack/question-catalog-service/internal/utils"
	"github.com/edustack/question-catalog-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error payload for every endpoint
type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// parseIDParam parses the :id path parameter
func (h *BaseHandler) parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid question ID",
			Details: c.Param("id"),
		})
		return 0, false
	}
	return uint(id), true
}

// handleServiceError maps service errors onto HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var dupErr *services.DuplicateError
	if errors.As(err, &dupErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: dupErr.Error(),
			Code:    dupErr.Code(),
			Details: dupErr,
		})
		return
	}

	var simErr *services.SimilarQuestionsError
	if errors.As(err, &simErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: simErr.Error(),
			Code:    simErr.Code(),
			Details: simErr,
		})
		return
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Code:    "VALIDATION_ERROR",
			Details: valErrs,
		})
		return
	}

	var scoringErr *services.ScoringUnavailableError
	if errors.As(err, &scoringErr) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Similarity scoring is temporarily unavailable",
			Code:    scoringErr.Code(),
		})
		return
	}

	if errors.Is(err, services.ErrQuestionNotFound) || errors.Is(err, services.ErrUsageNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
		})
		return
	}

	if repositories.IsNotFoundError(err) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Resource not found",
		})
		return
	}

	h.logger.Error("Unhandled service error", "error", err)
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Message: "Service temporarily unavailable",
	})
}
