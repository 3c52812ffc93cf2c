// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/config"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/di"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/imagegen"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/llm"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/services"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/storage"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/store"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/utils"
)

// App is the process-wide application instance.
type App struct {
	config   *config.AppConfig
	router   *gin.Engine
	server   *http.Server
	stopChan chan os.Signal
}

var instance *App

// GetApp returns the application singleton.
func GetApp() *App {
	if instance == nil {
		instance = &App{
			stopChan: make(chan os.Signal, 1),
		}
	}
	return instance
}

// GetConfig returns the application configuration.
func (a *App) GetConfig() *config.AppConfig {
	return a.config
}

// GetDIContainer returns the global dependency container.
func GetDIContainer() *di.Container {
	return di.GetContainer()
}

// IsDebugMode reports whether the app runs with debug logging.
func IsDebugMode() bool {
	if instance == nil || instance.config == nil {
		return false
	}
	return instance.config.DebugMode
}

// InitServices builds and registers every service in dependency order:
// storage backend, stores, providers, then the pipeline on top.
func InitServices() error {
	cfg := config.GetCurrentConfig()
	GetApp().config = cfg
	container := di.GetContainer()

	// Shared bounded backend for sessions, prompt history and drafts.
	backend, err := storage.NewFileBackend(cfg.DataDir, cfg.StorageQuotaBytes)
	if err != nil {
		return fmt.Errorf("initialize storage backend: %w", err)
	}
	container.Register("backend", backend)

	sessions := store.NewBoundedSessionStore(backend)
	container.Register("sessions", sessions)

	history := store.NewPromptHistoryIndex(backend, sessions)
	container.Register("history", history)

	workspace := services.NewWorkspaceService(backend)
	container.Register("workspace", workspace)

	progress := services.NewProgressService()
	container.Register("progress", progress)

	textProvider, err := llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
	if err != nil {
		return fmt.Errorf("initialize LLM provider %q: %w", cfg.LLMProvider, err)
	}
	container.Register("llm", textProvider)

	imageProvider, err := imagegen.GetProvider(cfg.ImageProvider, cfg.ImageConfig)
	if err != nil {
		return fmt.Errorf("initialize image provider %q: %w", cfg.ImageProvider, err)
	}
	container.Register("imagegen", imageProvider)

	assembler := services.NewAssemblerService(sessions, history)
	container.Register("assembler", assembler)

	pipeline := services.NewPipelineService(textProvider, imageProvider, progress, assembler, workspace)
	container.Register("pipeline", pipeline)

	utils.GetLogger().Info("services initialized", map[string]interface{}{
		"services": len(container.GetNames()),
	})
	return nil
}

// InitLogger sets up file logging under logDir.
func InitLogger(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	logFile := filepath.Join(logDir, fmt.Sprintf("server_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

// Run starts the HTTP server with router and blocks until a shutdown signal
// arrives, then drains in-flight requests.
func (a *App) Run(router *gin.Engine) error {
	a.router = router
	a.server = &http.Server{
		Addr:    ":" + a.config.Port,
		Handler: router,
	}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.GetLogger().Fatal("server failed", map[string]interface{}{"err": err})
		}
	}()
	utils.GetLogger().Info("server listening", map[string]interface{}{"port": a.config.Port})

	signal.Notify(a.stopChan, syscall.SIGINT, syscall.SIGTERM)
	<-a.stopChan

	utils.GetLogger().Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	utils.GetLogger().Info("server stopped", nil)
	return nil
}
