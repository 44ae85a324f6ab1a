// Package config loads the engine's configuration: built-in defaults,
// merged with a workspace YAML file, merged with environment variables at
// the highest precedence — the same three-tier order the teacher applies.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration: workspace roots, cache location,
// indexing/search tunables, and the per-component sections below.
type Config struct {
	WorkspaceRoots      []string `yaml:"workspace_roots" json:"workspace_roots"`
	CacheDir            string   `yaml:"cache_dir" json:"cache_dir"`
	MaxFileSizeBytes    int64    `yaml:"max_file_size" json:"max_file_size"`
	IndexingThreads     int      `yaml:"indexing_threads" json:"indexing_threads"`
	EnableSemantic      bool     `yaml:"enable_semantic" json:"enable_semantic"`
	Languages           []string `yaml:"languages" json:"languages"`
	FileWatchDebounceMS int      `yaml:"file_watch_debounce_ms" json:"file_watch_debounce_ms"`

	Fusion     FusionConfig     `yaml:"fusion" json:"fusion"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Fuzzy      FuzzyConfig      `yaml:"fuzzy" json:"fuzzy"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	VectorDB   VectorDBConfig   `yaml:"vector_db" json:"vector_db"`
	Cache      QueryCacheConfig `yaml:"query_cache" json:"query_cache"`
}

// FusionConfig controls reciprocal-rank fusion weighting.
type FusionConfig struct {
	BM25Weight     float64 `yaml:"bm25_weight" json:"bm25_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	RRFConstant    int     `yaml:"rrf_constant" json:"rrf_constant"`
}

// ChunkingConfig controls the chunker.
type ChunkingConfig struct {
	Strategy       string  `yaml:"strategy" json:"strategy"` // "heuristic" or "syntax"
	ChunkSize      int     `yaml:"chunk_size" json:"chunk_size"`
	MaxChunkSize   int     `yaml:"max_chunk_size" json:"max_chunk_size"`
	OverlapFraction float64 `yaml:"overlap_fraction" json:"overlap_fraction"`
}

// FuzzyConfig controls literal-mode fuzzy term matching.
type FuzzyConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Threshold   float64 `yaml:"threshold" json:"threshold"`
	MaxDistance int     `yaml:"max_distance" json:"max_distance"`
	UseJaro     bool    `yaml:"use_jaro" json:"use_jaro"`
}

// EmbeddingsConfig controls the embedding pipeline.
type EmbeddingsConfig struct {
	ModelDir  string `yaml:"model_dir" json:"model_dir"`
	BatchSize int    `yaml:"batch_size" json:"batch_size"`
}

// VectorDBConfig controls the vector store adaptor.
type VectorDBConfig struct {
	URL              string `yaml:"url" json:"url"`
	QuantizationMode string `yaml:"quantization_mode" json:"quantization_mode"`
}

// QueryCacheConfig controls the query-result cache.
type QueryCacheConfig struct {
	TTLSeconds     int `yaml:"ttl_seconds" json:"ttl_seconds"`
	MaxEntries     int `yaml:"max_entries" json:"max_entries"`
	MinQueryLength int `yaml:"min_query_length" json:"min_query_length"`
}

// Default builds a Config with rune's out-of-the-box defaults.
func Default(workspaceRoot string) *Config {
	cacheDir := filepath.Join(workspaceRoot, ".rune")
	return &Config{
		WorkspaceRoots:      []string{workspaceRoot},
		CacheDir:            cacheDir,
		MaxFileSizeBytes:    5 * 1024 * 1024,
		IndexingThreads:     runtime.NumCPU(),
		EnableSemantic:      true,
		Languages:           nil,
		FileWatchDebounceMS: 500,
		Fusion: FusionConfig{
			BM25Weight:     0.35,
			SemanticWeight: 0.65,
			RRFConstant:    60,
		},
		Chunking: ChunkingConfig{
			Strategy:        "syntax",
			ChunkSize:       1500,
			MaxChunkSize:    3000,
			OverlapFraction: 0.15,
		},
		Fuzzy: FuzzyConfig{
			Enabled:     true,
			Threshold:   0.75,
			MaxDistance: 2,
			UseJaro:     false,
		},
		Embeddings: EmbeddingsConfig{
			ModelDir:  filepath.Join(cacheDir, "models", "all-MiniLM-L6-v2"),
			BatchSize: 32,
		},
		VectorDB: VectorDBConfig{
			URL:              "",
			QuantizationMode: "scalar",
		},
		Cache: QueryCacheConfig{
			TTLSeconds:     300,
			MaxEntries:     10000,
			MinQueryLength: 2,
		},
	}
}

// Load builds the configuration for workspaceRoot: defaults, then
// .rune.yaml in the root (if present), then RUNE_* environment overrides,
// then validation.
func Load(workspaceRoot string) (*Config, error) {
	cfg := Default(workspaceRoot)

	if err := cfg.loadYAMLFile(filepath.Join(workspaceRoot, ".rune.yaml")); err != nil {
		return nil, err
	}
	if err := cfg.loadYAMLFile(filepath.Join(workspaceRoot, ".rune.yml")); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadYAMLFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)

	// Booleans are applied only when the file sets them: their zero value
	// cannot be told apart from an absent key.
	var flags struct {
		EnableSemantic *bool `yaml:"enable_semantic"`
		Fuzzy          struct {
			Enabled *bool `yaml:"enabled"`
			UseJaro *bool `yaml:"use_jaro"`
		} `yaml:"fuzzy"`
	}
	if err := yaml.Unmarshal(data, &flags); err == nil {
		if flags.EnableSemantic != nil {
			c.EnableSemantic = *flags.EnableSemantic
		}
		if flags.Fuzzy.Enabled != nil {
			c.Fuzzy.Enabled = *flags.Fuzzy.Enabled
		}
		if flags.Fuzzy.UseJaro != nil {
			c.Fuzzy.UseJaro = *flags.Fuzzy.UseJaro
		}
	}
	return nil
}

func (c *Config) mergeWith(o *Config) {
	if len(o.WorkspaceRoots) > 0 {
		c.WorkspaceRoots = o.WorkspaceRoots
	}
	if o.CacheDir != "" {
		c.CacheDir = o.CacheDir
	}
	if o.MaxFileSizeBytes != 0 {
		c.MaxFileSizeBytes = o.MaxFileSizeBytes
	}
	if o.IndexingThreads != 0 {
		c.IndexingThreads = o.IndexingThreads
	}
	if len(o.Languages) > 0 {
		c.Languages = o.Languages
	}
	if o.FileWatchDebounceMS != 0 {
		c.FileWatchDebounceMS = o.FileWatchDebounceMS
	}
	if o.Fusion.BM25Weight != 0 {
		c.Fusion.BM25Weight = o.Fusion.BM25Weight
	}
	if o.Fusion.SemanticWeight != 0 {
		c.Fusion.SemanticWeight = o.Fusion.SemanticWeight
	}
	if o.Fusion.RRFConstant != 0 {
		c.Fusion.RRFConstant = o.Fusion.RRFConstant
	}
	if o.Chunking.Strategy != "" {
		c.Chunking.Strategy = o.Chunking.Strategy
	}
	if o.Chunking.ChunkSize != 0 {
		c.Chunking.ChunkSize = o.Chunking.ChunkSize
	}
	if o.Chunking.MaxChunkSize != 0 {
		c.Chunking.MaxChunkSize = o.Chunking.MaxChunkSize
	}
	if o.Chunking.OverlapFraction != 0 {
		c.Chunking.OverlapFraction = o.Chunking.OverlapFraction
	}
	if o.Fuzzy.Threshold != 0 {
		c.Fuzzy.Threshold = o.Fuzzy.Threshold
	}
	if o.Fuzzy.MaxDistance != 0 {
		c.Fuzzy.MaxDistance = o.Fuzzy.MaxDistance
	}
	if o.Embeddings.ModelDir != "" {
		c.Embeddings.ModelDir = o.Embeddings.ModelDir
	}
	if o.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = o.Embeddings.BatchSize
	}
	if o.VectorDB.URL != "" {
		c.VectorDB.URL = o.VectorDB.URL
	}
	if o.VectorDB.QuantizationMode != "" {
		c.VectorDB.QuantizationMode = o.VectorDB.QuantizationMode
	}
	if o.Cache.TTLSeconds != 0 {
		c.Cache.TTLSeconds = o.Cache.TTLSeconds
	}
	if o.Cache.MaxEntries != 0 {
		c.Cache.MaxEntries = o.Cache.MaxEntries
	}
	if o.Cache.MinQueryLength != 0 {
		c.Cache.MinQueryLength = o.Cache.MinQueryLength
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RUNE_ENABLE_SEMANTIC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.EnableSemantic = b
		}
	}
	if v := os.Getenv("RUNE_QUANTIZATION_MODE"); v != "" {
		c.VectorDB.QuantizationMode = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		c.VectorDB.URL = v
	}
	if v := os.Getenv("RUNE_FUZZY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Fuzzy.Enabled = b
		}
	}
	if v := os.Getenv("RUNE_FUZZY_THRESHOLD"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Fuzzy.Threshold = f
		}
	}
	if v := os.Getenv("RUNE_FUZZY_MAX_DISTANCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Fuzzy.MaxDistance = n
		}
	}
	if v := os.Getenv("RUNE_FUZZY_USE_JARO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Fuzzy.UseJaro = b
		}
	}
}

func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Validate rejects a loaded configuration that would put the engine into an
// inconsistent state.
func (c *Config) Validate() error {
	if len(c.WorkspaceRoots) == 0 {
		return fmt.Errorf("workspace_roots must not be empty")
	}
	for _, r := range c.WorkspaceRoots {
		if !filepath.IsAbs(r) {
			return fmt.Errorf("workspace_roots entries must be absolute, got %q", r)
		}
	}
	if c.IndexingThreads < 1 {
		return fmt.Errorf("indexing_threads must be >= 1, got %d", c.IndexingThreads)
	}
	if c.Fusion.BM25Weight < 0 || c.Fusion.BM25Weight > 1 {
		return fmt.Errorf("fusion.bm25_weight must be between 0 and 1, got %f", c.Fusion.BM25Weight)
	}
	if c.Fusion.SemanticWeight < 0 || c.Fusion.SemanticWeight > 1 {
		return fmt.Errorf("fusion.semantic_weight must be between 0 and 1, got %f", c.Fusion.SemanticWeight)
	}
	if sum := c.Fusion.BM25Weight + c.Fusion.SemanticWeight; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("fusion.bm25_weight + fusion.semantic_weight must equal 1.0, got %.2f", sum)
	}
	if c.Chunking.ChunkSize <= 0 || c.Chunking.MaxChunkSize <= 0 {
		return fmt.Errorf("chunking sizes must be positive")
	}
	if c.Chunking.ChunkSize > c.Chunking.MaxChunkSize {
		return fmt.Errorf("chunking.chunk_size must not exceed chunking.max_chunk_size")
	}
	return nil
}

// FindProjectRoot walks up from startDir looking for a `.git` directory or
// a `.rune.yaml`/`.rune.yml` file, returning the first directory that has
// one. If neither is found before reaching the filesystem root, it returns
// the absolute form of startDir unchanged.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve start dir: %w", err)
	}

	dir := absDir
	for {
		if dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		if fileExists(filepath.Join(dir, ".rune.yaml")) || fileExists(filepath.Join(dir, ".rune.yml")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteYAML persists the configuration as YAML at path, in the form Load
// reads back.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
