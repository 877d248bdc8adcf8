// Package llm provides centralized LLM configuration and client abstractions
// used by the assessment gateway.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: contact extraction, answer grading
	TierLite ModelTier = "lite"
	// TierStandard is for structured generation: interview questions
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long-form reasoning: interview summaries
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// DefaultTemperature keeps grading and generation output consistent across calls.
const DefaultTemperature float32 = 0.1

// DefaultSystemInstruction is the persona applied to every request.
const DefaultSystemInstruction = "You are an experienced technical interviewer for full-stack React and Node.js roles. Be fair, concise and consistent."

// Config holds the model configuration for the application
type Config struct {
	Provider          Provider
	Models            map[ModelTier]string
	Temperature       float32
	SystemInstruction string
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature:       DefaultTemperature,
		SystemInstruction: DefaultSystemInstruction,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok && model != "" {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok && model != "" {
		return model
	}
	if model, ok := c.Models[TierLite]; ok && model != "" {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}

func (c *Config) temperature() float32 {
	if c.Temperature <= 0 {
		return DefaultTemperature
	}
	return c.Temperature
}
