// Package config loads docsift settings from YAML, the environment and
// a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docsift/internal/chunker"
	"docsift/internal/domain"
)

// OllamaConfig configures the text embedder and the vision model.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	TextModel      string `yaml:"text_model"`
	TextDimensions int    `yaml:"text_dimensions"`
	VisionModel    string `yaml:"vision_model"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
	BatchSize      int    `yaml:"batch_size"`
}

// Timeout returns the per-request timeout.
func (c OllamaConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// CLIPConfig configures the image and cross-modal embedder.
type CLIPConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Timeout returns the per-request timeout.
func (c CLIPConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }

// ChunkingConfig configures how page text is split.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	// Overlap is a pointer so an explicit 0 survives defaulting.
	Overlap         *int `yaml:"overlap"`
	SummaryPages    int  `yaml:"summary_pages"`
	SummaryMaxChars int  `yaml:"summary_max_chars"`
}

// OverlapChars returns the configured overlap, or the default when unset.
func (c ChunkingConfig) OverlapChars() int {
	if c.Overlap == nil {
		return chunker.DefaultOverlap
	}
	return *c.Overlap
}

// SearchConfig holds the result counts of each search surface.
type SearchConfig struct {
	PaperTopK int `yaml:"paper_top_k"`
	PanelTopK int `yaml:"panel_top_k"`
	ImageTopK int `yaml:"image_top_k"`
}

// TopicsConfig holds the label description table and the labels used when
// the caller names none.
type TopicsConfig struct {
	Descriptions map[string]string `yaml:"descriptions"`
	Candidates   []string          `yaml:"candidates"`
}

// IngestConfig configures folder ingestion.
type IngestConfig struct {
	RootDir     string   `yaml:"root_dir"`
	Ignore      []string `yaml:"ignore"`
	MaxFileMB   int      `yaml:"max_file_mb"`
	MoveEnabled *bool    `yaml:"move"`
}

// Move reports whether classified papers are moved into topic folders.
func (c IngestConfig) Move() bool { return c.MoveEnabled == nil || *c.MoveEnabled }

// AppConfig is the root configuration.
type AppConfig struct {
	DBPath   string         `yaml:"db_path"`
	LogLevel string         `yaml:"log_level"`
	LogJSON  bool           `yaml:"log_json"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	CLIP     CLIPConfig     `yaml:"clip"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Search   SearchConfig   `yaml:"search"`
	Topics   TopicsConfig   `yaml:"topics"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

// TopicTable returns the configured descriptions as a lookup table.
func (c *AppConfig) TopicTable() domain.TopicTable {
	return domain.TopicTable(c.Topics.Descriptions)
}

// Validate rejects settings the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	if err := chunker.Validate(c.Chunking.ChunkSize, c.Chunking.OverlapChars()); err != nil {
		return err
	}
	if c.Ollama.TextDimensions <= 0 || c.CLIP.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive", domain.ErrConfiguration)
	}
	return nil
}

// Load reads a config from path. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./docsift.yaml first, then ~/.config/docsift/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "docsift.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docsift", "config.yaml"), nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".docsift", "docsift.db")
	}
	return filepath.Join(home, ".docsift", "docsift.db")
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.Ollama.TextModel == "" {
		cfg.Ollama.TextModel = "nomic-embed-text"
	}
	if cfg.Ollama.TextDimensions == 0 {
		cfg.Ollama.TextDimensions = 768
	}
	if cfg.Ollama.VisionModel == "" {
		cfg.Ollama.VisionModel = "llava"
	}
	if cfg.Ollama.TimeoutSecs == 0 {
		cfg.Ollama.TimeoutSecs = 120
	}
	if cfg.Ollama.BatchSize == 0 {
		cfg.Ollama.BatchSize = 32
	}

	if cfg.CLIP.BaseURL == "" {
		cfg.CLIP.BaseURL = "http://localhost:8765"
	}
	if cfg.CLIP.Model == "" {
		cfg.CLIP.Model = "clip-ViT-B-32"
	}
	if cfg.CLIP.Dimensions == 0 {
		cfg.CLIP.Dimensions = 512
	}
	if cfg.CLIP.TimeoutSecs == 0 {
		cfg.CLIP.TimeoutSecs = 60
	}

	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.Chunking.Overlap == nil {
		overlap := chunker.DefaultOverlap
		cfg.Chunking.Overlap = &overlap
	}
	if cfg.Chunking.SummaryPages == 0 {
		cfg.Chunking.SummaryPages = chunker.DefaultSummaryPages
	}
	if cfg.Chunking.SummaryMaxChars == 0 {
		cfg.Chunking.SummaryMaxChars = chunker.DefaultSummaryMaxChars
	}

	if cfg.Search.PaperTopK <= 0 {
		cfg.Search.PaperTopK = 5
	}
	if cfg.Search.PanelTopK <= 0 {
		cfg.Search.PanelTopK = 3
	}
	if cfg.Search.ImageTopK <= 0 {
		cfg.Search.ImageTopK = 6
	}

	if len(cfg.Topics.Descriptions) == 0 {
		cfg.Topics.Descriptions = make(map[string]string, len(domain.DefaultTopics))
		for k, v := range domain.DefaultTopics {
			cfg.Topics.Descriptions[k] = v
		}
	}
	if cfg.Ingest.MaxFileMB == 0 {
		cfg.Ingest.MaxFileMB = 200
	}
}

// applyEnv lets DOCSIFT_* variables override file settings.
func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("DOCSIFT_DB")); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("DOCSIFT_OLLAMA_URL")); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DOCSIFT_CLIP_URL")); v != "" {
		cfg.CLIP.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DOCSIFT_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
}

// ParseTopics splits a comma separated label list, dropping blanks.
func ParseTopics(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
