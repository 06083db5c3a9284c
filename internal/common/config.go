package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Dataset  DatasetConfig
	Pipeline PipelineConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Agentic  AgenticConfig
	Mirror   MirrorConfig
}

// DatasetConfig holds master-dataset storage configuration.
type DatasetConfig struct {
	// SQLitePath is used when DSN is empty (the default, single-node setup).
	SQLitePath string
	// DSN selects the Postgres store when non-empty.
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	MirrorXLSXPath   string
	DebugArtifactDir string
}

// PipelineConfig holds extraction scheduling configuration.
type PipelineConfig struct {
	BatchSize    int // documents processed in parallel
	PageWorkers  int // pages processed in parallel within one document
	MaxRetries   int
	MaxRetryWait time.Duration
	PriceStyle   string // "eu" or "en"
	MergeMode    string // "append" or "update"
	BrandProfile string // path to brands.yaml
	BatchTimeout time.Duration
}

// OCRConfig holds external OCR tool configuration.
type OCRConfig struct {
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
	MaxPages      int
}

// LLMConfig holds model-backend configuration.
type LLMConfig struct {
	Model       string
	VisionModel string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// AgenticConfig holds the alternate hosted document-extraction service.
// Disabled when the endpoint is empty.
type AgenticConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// MirrorConfig holds the optional remote debug-artifact mirror.
type MirrorConfig struct {
	Repo   string // owner/name
	Token  string
	Branch string
}

// LoadConfig loads configuration from a .env file (if present) and
// environment variables.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Dataset: DatasetConfig{
			SQLitePath:       getEnv("MASTER_DB_PATH", "master/master.db"),
			DSN:              getEnv("DATASET_DSN", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			MirrorXLSXPath:   getEnv("MASTER_XLSX_PATH", "master/master_dataset.xlsx"),
			DebugArtifactDir: getEnv("DEBUG_ARTIFACT_DIR", "llm_output"),
		},
		Pipeline: PipelineConfig{
			BatchSize:    getEnvAsInt("BATCH_SIZE", 2),
			PageWorkers:  getEnvAsInt("PAGE_WORKERS", 5),
			MaxRetries:   getEnvAsInt("MAX_RETRIES", 3),
			MaxRetryWait: getEnvAsDuration("MAX_RETRY_WAIT", 30*time.Second),
			PriceStyle:   getEnv("PRICE_STYLE", "eu"),
			MergeMode:    getEnv("MERGE_MODE", "append"),
			BrandProfile: getEnv("BRAND_PROFILE_PATH", "brands.yaml"),
			BatchTimeout: getEnvAsDuration("BATCH_TIMEOUT", 30*time.Minute),
		},
		OCR: OCRConfig{
			Pdftotext:     getEnv("PDFTOTEXT_CMD", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_CMD", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_CMD", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "tur+eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 150),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			VisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 120*time.Second),
		},
		Agentic: AgenticConfig{
			Endpoint: getEnv("AGENTIC_ENDPOINT", ""),
			APIKey:   getEnv("VISION_AGENT_API_KEY", ""),
			Timeout:  getEnvAsDuration("AGENTIC_TIMEOUT", 120*time.Second),
		},
		Mirror: MirrorConfig{
			Repo:   getEnv("MIRROR_REPO", ""),
			Token:  getEnv("MIRROR_TOKEN", ""),
			Branch: getEnv("MIRROR_BRANCH", "main"),
		},
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Dataset.SQLitePath == "" && c.Dataset.DSN == "" {
		return NewAppError("CONFIG_ERROR", "MASTER_DB_PATH or DATASET_DSN is required", ErrInvalidInput)
	}
	if c.Pipeline.BatchSize < 1 {
		return NewAppError("CONFIG_ERROR", "BATCH_SIZE must be >= 1", ErrInvalidInput)
	}
	if c.Pipeline.PageWorkers < 1 {
		return NewAppError("CONFIG_ERROR", "PAGE_WORKERS must be >= 1", ErrInvalidInput)
	}
	if s := c.Pipeline.PriceStyle; s != "eu" && s != "en" {
		return NewAppError("CONFIG_ERROR", "PRICE_STYLE must be 'eu' or 'en'", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
