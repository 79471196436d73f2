package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Config holds service configuration. config.json is loaded first and every
// field can be overridden by an environment variable, so deployments without
// a config file still work.
type Config struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	EmbeddingModel string `json:"embedding_model"`
	ChatModel      string `json:"chat_model"`
	WhisperModel   string `json:"whisper_model"`
	PostgresURL    string `json:"postgres_url"`
	MilvusAddr     string `json:"milvus_addr"`
	DataDir        string `json:"data_dir"`

	// Topic segmentation knobs. Lowering the threshold produces fewer,
	// coarser chapters.
	WindowSize          float64 `json:"window_size"`
	WindowOverlap       float64 `json:"window_overlap"`
	SimilarityThreshold float64 `json:"similarity_threshold"`

	TaskWorkers    int `json:"task_workers"`
	TaskQueueDepth int `json:"task_queue_depth"`
}

var globalConfig *Config

// newConfig marks the float knobs whose zero value is a legal setting
// (overlap 0, threshold 0) as unset, so defaults only fill fields that
// neither config.json nor the environment provided.
func newConfig() *Config {
	return &Config{
		WindowOverlap:       math.NaN(),
		SimilarityThreshold: math.NaN(),
	}
}

// LoadConfig loads config.json (if present), applies environment overrides
// and defaults, and caches the result for the process lifetime.
func LoadConfig() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	config := newConfig()
	if data, err := os.ReadFile("config.json"); err == nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config.json: %v", err)
		}
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	globalConfig = config
	return globalConfig, nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
	if v := os.Getenv("CHAT_MODEL"); v != "" {
		c.ChatModel = v
	}
	if v := os.Getenv("WHISPER_MODEL"); v != "" {
		c.WhisperModel = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		c.PostgresURL = v
	}
	if v := os.Getenv("MILVUS_ADDR"); v != "" {
		c.MilvusAddr = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("WINDOW_SIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.WindowSize = f
		}
	}
	if v := os.Getenv("WINDOW_OVERLAP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.WindowOverlap = f
		}
	}
	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("TASK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TaskWorkers = n
		}
	}
	if v := os.Getenv("TASK_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TaskQueueDepth = n
		}
	}
}

func applyDefaults(c *Config) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-3-small"
	}
	if c.ChatModel == "" {
		c.ChatModel = "gpt-4o-mini"
	}
	if c.WhisperModel == "" {
		c.WhisperModel = "base"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.WindowSize == 0 {
		c.WindowSize = 60
	}
	if math.IsNaN(c.WindowOverlap) {
		c.WindowOverlap = 30
	}
	if math.IsNaN(c.SimilarityThreshold) {
		c.SimilarityThreshold = 0.72
	}
	if c.TaskWorkers == 0 {
		c.TaskWorkers = 4
	}
	if c.TaskQueueDepth == 0 {
		c.TaskQueueDepth = 16
	}
}

func (c *Config) Validate() error {
	var errors []string

	if c.WindowSize <= 0 {
		errors = append(errors, "window_size must be positive")
	}
	if c.WindowOverlap < 0 || c.WindowOverlap >= c.WindowSize {
		errors = append(errors, "window_overlap must satisfy 0 <= overlap < window_size")
	}
	if c.SimilarityThreshold <= -1 || c.SimilarityThreshold > 1 {
		errors = append(errors, "similarity_threshold must be in (-1, 1]")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errors = append(errors, "data_dir is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// HasValidAPI reports whether API-backed providers (Whisper API, embeddings,
// chat summarizer) can be used.
func (c *Config) HasValidAPI() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.BaseURL) != ""
}
