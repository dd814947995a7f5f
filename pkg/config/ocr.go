package config

import "time"

// OCRConfig configures the provider chain. Providers are tried in the
// order listed in OCR_PROVIDERS; a provider whose credentials are missing
// is skipped.
type OCRConfig struct {
	Providers  []string
	MaxRetries int
	RetryDelay time.Duration
	MaxTokens  int

	Mistral   ProviderConfig
	OpenAI    ProviderConfig
	Anthropic ProviderConfig
	Gemini    ProviderConfig
	Bedrock   ProviderConfig
	Azure     AzureConfig

	TesseractLanguages []string
}

type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type AzureConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	// UseDefaultCredential authenticates with the ambient Azure identity.
	UseDefaultCredential bool
}

func loadOCRConfig() OCRConfig {
	return OCRConfig{
		Providers:  getEnvStringSlice("OCR_PROVIDERS", []string{"mistral", "openai", "anthropic", "gemini", "azure", "bedrock", "tesseract"}),
		MaxRetries: getEnvInt("OCR_MAX_RETRIES", 2),
		RetryDelay: getEnvDuration("OCR_RETRY_DELAY", time.Second),
		MaxTokens:  getEnvInt("OCR_MAX_TOKENS", 8192),

		Mistral: ProviderConfig{
			APIKey:  getEnv("MISTRAL_API_KEY", ""),
			BaseURL: getEnv("MISTRAL_BASE_URL", ""),
			Model:   getEnv("MISTRAL_OCR_MODEL", "mistral-ocr-latest"),
		},
		OpenAI: ProviderConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("OPENAI_OCR_MODEL", "gpt-4o"),
		},
		Anthropic: ProviderConfig{
			APIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:  getEnv("ANTHROPIC_OCR_MODEL", "claude-sonnet-4-20250514"),
		},
		Gemini: ProviderConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_OCR_MODEL", "gemini-2.5-flash"),
		},
		Bedrock: ProviderConfig{
			Model: getEnv("BEDROCK_OCR_MODEL", ""),
		},
		Azure: AzureConfig{
			Endpoint:             getEnv("AZURE_OPENAI_ENDPOINT", ""),
			APIKey:               getEnv("AZURE_OPENAI_API_KEY", ""),
			Deployment:           getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
			APIVersion:           getEnv("AZURE_OPENAI_API_VERSION", "2024-06-01"),
			UseDefaultCredential: getEnvBool("AZURE_OPENAI_USE_DEFAULT_CREDENTIAL", false),
		},

		TesseractLanguages: getEnvStringSlice("TESSERACT_LANGUAGES", []string{"eng"}),
	}
}
