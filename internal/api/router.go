package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	ProgressHandler *ProgressHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")
	if cfg.ProgressHandler != nil {
		users := api.Group("/users/:userID")
		users.POST("/lessons", cfg.ProgressHandler.CompleteLesson)
		users.POST("/assessments", cfg.ProgressHandler.CompleteAssessment)
		users.GET("/progress", cfg.ProgressHandler.GetProgress)
		users.GET("/words", cfg.ProgressHandler.ListPracticeWords)
	}
	return r
}
