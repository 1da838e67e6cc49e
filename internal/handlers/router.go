package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edustack/question-catalog-service/internal/repositories"
	"github.com/edustack/question-catalog-service/internal/services"
	"github.com/edustack/question-catalog-service/internal/utils"
)

type HandlerManager struct {
	questionHandler *QuestionHandler
	usageHandler    *UsageHandler
	repoManager     repositories.RepositoryManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	repoManager repositories.RepositoryManager,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		questionHandler: NewQuestionHandler(serviceManager.Question(), serviceManager.Export(), logger),
		usageHandler:    NewUsageHandler(serviceManager.Usage(), logger),
		repoManager:     repoManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		questions := v1.Group("/questions")
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.POST("/check-similarity", hm.questionHandler.CheckSimilarity)
			questions.GET("/export", hm.questionHandler.ExportQuestions)

			// Text-resolved usage endpoints used by the exam builder
			questions.POST("/usage-by-text", hm.usageHandler.RecordUsageByText)
			questions.POST("/usage-by-text/search", hm.usageHandler.SearchUsageByText)

			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
			questions.POST("/:id/archive", hm.questionHandler.ArchiveQuestion)

			questions.POST("/:id/usage", hm.usageHandler.RecordUsage)
			questions.GET("/:id/usage", hm.usageHandler.GetUsageHistory)
		}
	}
}

// HealthCheck reports liveness of the service and its stores
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if err := hm.repoManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
