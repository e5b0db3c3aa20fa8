package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or any compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// SupportsEmbeddings returns true if the provider offers an embedding endpoint.
func (p AIProvider) SupportsEmbeddings() bool {
	return p != AIProviderAnthropic && p.IsValid()
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI/Gemini).
	APIKey string

	// Dimensions overrides the model's default vector size.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generative provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic/Gemini).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// KnowledgeSettings controls the knowledge store.
type KnowledgeSettings struct {
	// Enabled switches retrieval-grounded generation on.
	Enabled bool

	// DataDir holds the knowledge database and group file.
	DataDir string
}

// GenerationSettings tunes outline and content generation.
type GenerationSettings struct {
	// Temperature is passed to every generation request.
	Temperature float64

	// MaxAttempts is the total Drafting budget per chapter.
	MaxAttempts int

	// RetryBackoff is the pause before each retry.
	RetryBackoff time.Duration

	// AttemptTimeout bounds one Drafting step.
	AttemptTimeout time.Duration

	// ExpectedWords is the target size of the finished document.
	ExpectedWords int

	// WordsPerSection is the expected size of one leaf section.
	WordsPerSection int

	// RequestsPerSecond throttles provider calls; zero disables throttling.
	RequestsPerSecond float64

	// References is the number of knowledge hits fed to each leaf.
	References int
}

// Generation defaults.
const (
	DefaultTemperature     = 0.7
	DefaultMaxAttempts     = 4
	DefaultRetryBackoff    = 500 * time.Millisecond
	DefaultAttemptTimeout  = 3 * time.Minute
	DefaultExpectedWords   = 100000
	DefaultWordsPerSection = 1500
)

// DefaultGenerationSettings returns the generation defaults.
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		Temperature:     DefaultTemperature,
		MaxAttempts:     DefaultMaxAttempts,
		RetryBackoff:    DefaultRetryBackoff,
		AttemptTimeout:  DefaultAttemptTimeout,
		ExpectedWords:   DefaultExpectedWords,
		WordsPerSection: DefaultWordsPerSection,
		References:      ReferenceTopK,
	}
}

// LeafTarget returns the number of leaf sections for the configured volume.
func (g GenerationSettings) LeafTarget() int {
	if g.WordsPerSection <= 0 || g.ExpectedWords <= 0 {
		return 0
	}
	return g.ExpectedWords / g.WordsPerSection
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider configuration.
	Embedding EmbeddingSettings

	// LLM holds generative provider configuration.
	LLM LLMSettings

	// Knowledge controls the knowledge store.
	Knowledge KnowledgeSettings

	// Generation tunes outline and content generation.
	Generation GenerationSettings
}

// DefaultAppSettings returns sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
		},
		Knowledge: KnowledgeSettings{
			Enabled: true,
		},
		Generation: DefaultGenerationSettings(),
	}
}

// Validate checks that the settings are internally consistent.
func (s AppSettings) Validate() error {
	if s.Generation.MaxAttempts < 1 {
		return ErrInvalidInput
	}
	if s.Generation.Temperature < 0 || s.Generation.Temperature > 2 {
		return ErrInvalidInput
	}
	if s.Knowledge.Enabled && !s.Embedding.IsConfigured() {
		return ErrEmbeddingUnavailable
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.5-flash",
	}
}

// EmbeddingDimensions returns known embedding dimensions by model.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"all-minilm":             384,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-004":     768,
		"gemini-embedding-001":   768,
	}
}
