// internal/api/router.go
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/di"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/services"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/store"
)

// SetupRouter builds the gin engine from services registered in the DI
// container. Every service must be registered before this runs.
func SetupRouter(container *di.Container) (*gin.Engine, error) {
	pipeline, ok := container.Get("pipeline").(*services.PipelineService)
	if !ok {
		return nil, fmt.Errorf("pipeline service not registered")
	}
	progress, ok := container.Get("progress").(*services.ProgressService)
	if !ok {
		return nil, fmt.Errorf("progress service not registered")
	}
	workspace, ok := container.Get("workspace").(*services.WorkspaceService)
	if !ok {
		return nil, fmt.Errorf("workspace service not registered")
	}
	sessions, ok := container.Get("sessions").(*store.BoundedSessionStore)
	if !ok {
		return nil, fmt.Errorf("session store not registered")
	}
	history, ok := container.Get("history").(*store.PromptHistoryIndex)
	if !ok {
		return nil, fmt.Errorf("prompt history not registered")
	}

	handler := NewHandler(pipeline, progress, workspace, sessions, history)

	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/generate", handler.Generate)
		apiGroup.POST("/scenes/:id/regenerate", handler.RegenerateScene)
		apiGroup.POST("/clear", handler.ClearWorkspace)

		apiGroup.GET("/workspace", handler.GetWorkspace)
		apiGroup.PUT("/workspace", handler.SaveWorkspace)

		apiGroup.GET("/sessions", handler.ListSessions)
		apiGroup.DELETE("/sessions/:id", handler.DeleteSession)

		apiGroup.GET("/history", handler.SearchHistory)
		apiGroup.GET("/history/image", handler.HistoryImage)
	}

	router.GET("/ws", handler.ProgressSocket)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router, nil
}
