// cmd/server/main.go
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/api"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/app"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/config"
	"github.com/asimrafique2000-rgb/bulk-generations/internal/di"

	// Provider registration.
	_ "github.com/asimrafique2000-rgb/bulk-generations/internal/imagegen/providers/google"
	_ "github.com/asimrafique2000-rgb/bulk-generations/internal/llm/providers/google"
)

func main() {
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	createDirectories(baseConfig)

	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("initialize config: %v", err)
	}

	if err := app.InitLogger(baseConfig.LogDir); err != nil {
		log.Fatalf("initialize logging: %v", err)
	}

	if err := app.InitServices(); err != nil {
		log.Fatalf("initialize services: %v", err)
	}

	router, err := api.SetupRouter(di.GetContainer())
	if err != nil {
		log.Fatalf("set up router: %v", err)
	}

	if err := app.GetApp().Run(router); err != nil {
		log.Fatalf("run server: %v", err)
	}
}

// createDirectories creates the directory layout the app expects.
func createDirectories(cfg *config.Config) {
	dirs := []string{
		cfg.DataDir,
		filepath.Join(cfg.DataDir, "tmp"),
		cfg.LogDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("create directory %s: %v", dir, err)
		}
	}
}
