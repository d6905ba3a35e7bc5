package bedrockllm

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/models/bedrock.yaml
var bedrockCatalogYAML []byte

// Invoke body formats. Only InvokeFormatLlama matches CompletionRequest.
const (
	InvokeFormatLlama     = "llama"
	InvokeFormatAnthropic = "anthropic"
	InvokeFormatMistral   = "mistral"
	InvokeFormatTitan     = "titan"
)

// Catalog Philosophy:
//
// The catalog is MODEL METADATA for listings and advisory warnings.
// It does NOT gate requests - the Bedrock API is the source of truth, and
// a model missing here may simply be newer than the embedded file.

// ModelInfo describes one foundation model.
type ModelInfo struct {
	ID                 string   `yaml:"id" json:"modelId"`
	Name               string   `yaml:"name" json:"modelName"`
	Provider           string   `yaml:"provider" json:"providerName"`
	ARN                string   `yaml:"arn,omitempty" json:"modelArn,omitempty"`
	InvokeFormat       string   `yaml:"invoke_format" json:"invokeFormat,omitempty"`
	StreamingSupported bool     `yaml:"streaming" json:"responseStreamingSupported"`
	ConverseSupported  bool     `yaml:"converse" json:"converseSupported"`
	MaxOutputTokens    int      `yaml:"max_output_tokens,omitempty" json:"maxOutputTokens,omitempty"`
	InputModalities    []string `yaml:"input_modalities" json:"inputModalities,omitempty"`
	OutputModalities   []string `yaml:"output_modalities" json:"outputModalities,omitempty"`
	LifecycleStatus    string   `yaml:"lifecycle_status,omitempty" json:"lifecycleStatus,omitempty"`
}

// CatalogFile is the on-disk catalog format.
type CatalogFile struct {
	Version     string      `yaml:"version"`      // Semantic version (e.g., "1.0.0")
	LastUpdated string      `yaml:"last_updated"` // ISO 8601 date
	Models      []ModelInfo `yaml:"models"`
}

// ModelCatalog indexes known models by ID while keeping file order.
type ModelCatalog struct {
	models map[string]ModelInfo
	order  []string
	mu     sync.RWMutex
}

var (
	defaultCatalog     *ModelCatalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the catalog loaded from the embedded YAML (singleton).
func DefaultCatalog() *ModelCatalog {
	defaultCatalogOnce.Do(func() {
		defaultCatalog = NewModelCatalog()
		if err := defaultCatalog.Load(bedrockCatalogYAML); err != nil {
			// Embedded file is part of the build; keep an empty catalog rather than panic.
			fmt.Fprintf(os.Stderr, "Warning: failed to load embedded model catalog: %v\n", err)
		}
	})
	return defaultCatalog
}

// NewModelCatalog returns an empty catalog.
func NewModelCatalog() *ModelCatalog {
	return &ModelCatalog{models: make(map[string]ModelInfo)}
}

// Load merges models from YAML data. Later entries replace earlier ones with the same ID.
func (c *ModelCatalog) Load(data []byte) error {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal model catalog: %w", err)
	}
	for i, m := range file.Models {
		if m.ID == "" {
			return fmt.Errorf("model catalog entry %d has no id", i)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range file.Models {
		c.putLocked(m)
	}
	return nil
}

// LoadFile merges models from a YAML file on disk.
func (c *ModelCatalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model catalog: %w", err)
	}
	return c.Load(data)
}

// Register adds or replaces a model programmatically.
func (c *ModelCatalog) Register(m ModelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(m)
}

func (c *ModelCatalog) putLocked(m ModelInfo) {
	if _, exists := c.models[m.ID]; !exists {
		c.order = append(c.order, m.ID)
	}
	c.models[m.ID] = m
}

// Lookup returns the model with the given ID.
func (c *ModelCatalog) Lookup(id string) (ModelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[id]
	return m, ok
}

// Models returns all models in registration order.
func (c *ModelCatalog) Models() []ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ModelInfo, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.models[id])
	}
	return out
}

// SupportsStreaming reports whether a known model streams responses.
// Unknown models report false.
func (c *ModelCatalog) SupportsStreaming(id string) bool {
	m, ok := c.Lookup(id)
	return ok && m.StreamingSupported
}
