package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider string
	Model    string
}

type Config struct {
	PostgresDSN string

	// DocumentsDir holds cleaned document text persisted at ingestion;
	// TempDir holds transient raw uploads.
	DocumentsDir string
	TempDir      string

	// MaxDocumentChars is a soft ceiling: larger documents are logged and
	// ingested anyway.
	MaxDocumentChars int

	Embeddings EmbeddingsConfig
	LLM        LLMConfig

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func Load() Config {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	return Config{
		PostgresDSN:      getEnv("POSTGRES_DSN", "postgres://localhost:5432/careerkb?sslmode=disable"),
		DocumentsDir:     getEnv("DOCUMENTS_DIR", "./app_data/documents"),
		TempDir:          getEnv("TEMP_DIR", "./app_data/tmp"),
		MaxDocumentChars: getEnvInt("MAX_DOCUMENT_CHARS", 200_000),
		Embeddings: EmbeddingsConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOllama),
			Model:     getEnv("EMBEDDINGS_MODEL", "nomic-embed-text"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 768),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ProviderOllama),
			Model:    getEnv("LLM_MODEL", "llama3.1:8b"),
		},
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
