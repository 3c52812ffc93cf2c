// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Package-level singleton for the current configuration.
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// DefaultStorageQuotaBytes bounds local history storage when no quota is
// configured. Mirrors the browser-local storage budget the UI had before.
const DefaultStorageQuotaBytes = 5 * 1024 * 1024

// AppConfig holds the full application configuration. The LLM and image
// service sections are persisted to the config file so settings changes
// survive restarts.
type AppConfig struct {
	Port              string `json:"port"`
	DataDir           string `json:"data_dir"`
	LogDir            string `json:"log_dir"`
	DebugMode         bool   `json:"debug_mode"`
	StorageQuotaBytes int64  `json:"storage_quota_bytes"`

	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`

	ImageProvider string            `json:"image_provider"`
	ImageConfig   map[string]string `json:"image_config"`
}

// Config carries the environment-derived base settings.
type Config struct {
	Port              string
	APIKey            string
	DataDir           string
	LogDir            string
	DebugMode         bool
	StorageQuotaBytes int64
}

// Load reads configuration from environment variables, with an optional .env
// file.
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:              getEnv("PORT", "8080"),
		APIKey:            getEnv("GEMINI_API_KEY", ""),
		DataDir:           getEnvPath("DATA_DIR", "data"),
		LogDir:            getEnvPath("LOG_DIR", "logs"),
		DebugMode:         getEnvBool("DEBUG_MODE", false),
		StorageQuotaBytes: getEnvInt64("STORAGE_QUOTA_BYTES", DefaultStorageQuotaBytes),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("warning: failed to create directory %s: %v\n", path, err)
		}
	}
	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

// InitConfig initializes the configuration manager, merging saved settings
// from the config file with the current environment.
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:              baseConfig.Port,
		DataDir:           baseConfig.DataDir,
		LogDir:            baseConfig.LogDir,
		DebugMode:         baseConfig.DebugMode,
		StorageQuotaBytes: baseConfig.StorageQuotaBytes,
		LLMProvider:       "google",
		LLMConfig: map[string]string{
			"api_key":       baseConfig.APIKey,
			"default_model": "gemini-2.5-flash",
		},
		ImageProvider: "google",
		ImageConfig: map[string]string{
			"api_key":       baseConfig.APIKey,
			"default_model": "gemini-2.0-flash-preview-image-generation",
		},
	}

	// Merge previously saved provider settings, keeping the fresh base config.
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = baseConfig.DataDir
				savedConfig.LogDir = baseConfig.LogDir
				savedConfig.DebugMode = baseConfig.DebugMode
				if savedConfig.StorageQuotaBytes <= 0 {
					savedConfig.StorageQuotaBytes = baseConfig.StorageQuotaBytes
				}
				if savedConfig.LLMConfig != nil && savedConfig.LLMConfig["api_key"] == "" {
					savedConfig.LLMConfig["api_key"] = baseConfig.APIKey
				}
				if savedConfig.ImageConfig != nil && savedConfig.ImageConfig["api_key"] == "" {
					savedConfig.ImageConfig["api_key"] = baseConfig.APIKey
				}
				currentConfig = &savedConfig
			}
		}
	}

	return saveConfigLocked()
}

// GetCurrentConfig returns a copy of the current configuration.
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		baseConfig, _ := Load()
		return &AppConfig{
			Port:              baseConfig.Port,
			DataDir:           baseConfig.DataDir,
			LogDir:            baseConfig.LogDir,
			DebugMode:         baseConfig.DebugMode,
			StorageQuotaBytes: baseConfig.StorageQuotaBytes,
			LLMProvider:       "google",
			LLMConfig: map[string]string{
				"api_key": baseConfig.APIKey,
			},
			ImageProvider: "google",
			ImageConfig: map[string]string{
				"api_key": baseConfig.APIKey,
			},
		}
	}

	configCopy := *currentConfig
	return &configCopy
}

// UpdateProviders updates the persisted service provider settings.
func UpdateProviders(llmProvider string, llmConfig map[string]string, imageProvider string, imageConfig map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("configuration system not initialized")
	}

	if llmProvider != "" {
		currentConfig.LLMProvider = llmProvider
		currentConfig.LLMConfig = llmConfig
	}
	if imageProvider != "" {
		currentConfig.ImageProvider = imageProvider
		currentConfig.ImageConfig = imageConfig
	}

	return saveConfigLocked()
}

func saveConfigLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("no configuration to save")
	}

	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
