package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is assembled from, in order of precedence: environment variables,
// the optional YAML file named by CONFIG_FILE, and built-in defaults.
// A .env file in the working directory is loaded into the environment first.
type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	Paths    PathsConfig    `yaml:"paths"`
	Upload   UploadConfig   `yaml:"upload"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Mock     MockConfig     `yaml:"mock"`

	Workers        int `yaml:"workers"`
	HTTPTimeoutSec int `yaml:"http_timeout_sec"`
}

type PathsConfig struct {
	UploadDir  string `yaml:"upload_dir"`
	OutputRoot string `yaml:"output_root"`
	InboxDir   string `yaml:"inbox_dir"`
}

type UploadConfig struct {
	MaxMB int `yaml:"max_mb"`
}

type OpenAIConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	TranscribeModel    string `yaml:"transcribe_model"`
	TranscribeLanguage string `yaml:"transcribe_language"`
	AnalysisModel      string `yaml:"analysis_model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AnalyzerConfig struct {
	Provider string `yaml:"provider"`
	// nil means unset; zero is a valid temperature
	Temperature *float32 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

type MockConfig struct {
	Transcribe bool `yaml:"transcribe"`
	LLM        bool `yaml:"llm"`
}

// Load reads configuration for the API server and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load() // loads .env

	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	setString(&c.Port, "PORT")
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.LogLevel, "LOG_LEVEL")

	setString(&c.Paths.UploadDir, "UPLOAD_DIR")
	setString(&c.Paths.OutputRoot, "OUTPUT_ROOT")
	setString(&c.Paths.InboxDir, "INBOX_DIR")
	errs = append(errs, setInt(&c.Upload.MaxMB, "MAX_UPLOAD_MB"))

	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.OpenAI.TranscribeModel, "TRANSCRIBE_MODEL")
	setString(&c.OpenAI.TranscribeLanguage, "TRANSCRIBE_LANGUAGE")
	setString(&c.OpenAI.AnalysisModel, "ANALYSIS_MODEL")

	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")
	setString(&c.Analyzer.Provider, "ANALYZER_PROVIDER")
	errs = append(errs, setFloat(&c.Analyzer.Temperature, "ANALYSIS_TEMPERATURE"))

	errs = append(errs, setBool(&c.Mock.Transcribe, "USE_MOCK_TRANSCRIBE"))
	errs = append(errs, setBool(&c.Mock.LLM, "USE_MOCK_LLM"))

	errs = append(errs, setInt(&c.Workers, "WORKERS"))
	errs = append(errs, setInt(&c.HTTPTimeoutSec, "HTTP_TIMEOUT_SEC"))
	return errors.Join(errs...)
}

// Validate fills defaults and rejects configurations that cannot run.
// API keys are never defaulted.
func (c *Config) Validate() error {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Paths.UploadDir == "" {
		c.Paths.UploadDir = os.TempDir()
	}
	if c.Paths.OutputRoot == "" {
		c.Paths.OutputRoot = "."
	}
	if c.Upload.MaxMB == 0 {
		c.Upload.MaxMB = 25
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.TranscribeModel == "" {
		c.OpenAI.TranscribeModel = "whisper-1"
	}
	if c.OpenAI.TranscribeLanguage == "" {
		c.OpenAI.TranscribeLanguage = "en"
	}
	if c.OpenAI.AnalysisModel == "" {
		c.OpenAI.AnalysisModel = "gpt-4o"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Analyzer.Provider == "" {
		c.Analyzer.Provider = ProviderOpenAI
	}
	if c.Analyzer.Temperature == nil {
		t := float32(0.3)
		c.Analyzer.Temperature = &t
	}
	if c.Analyzer.MaxTokens == 0 {
		c.Analyzer.MaxTokens = 2000
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.HTTPTimeoutSec <= 0 {
		c.HTTPTimeoutSec = 300
	}

	c.Analyzer.Provider = strings.ToLower(c.Analyzer.Provider)
	if c.Analyzer.Provider != ProviderOpenAI && c.Analyzer.Provider != ProviderGemini {
		return fmt.Errorf("analyzer.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.Analyzer.Provider)
	}
	if c.Upload.MaxMB < 0 {
		return errors.New("upload.max_mb must be positive")
	}
	if t := *c.Analyzer.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("analyzer.temperature must be between 0 and 2, got %g", t)
	}

	needOpenAI := !c.Mock.Transcribe || (!c.Mock.LLM && c.Analyzer.Provider == ProviderOpenAI)
	if needOpenAI && c.OpenAI.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if !c.Mock.LLM && c.Analyzer.Provider == ProviderGemini && c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required when analyzer.provider is gemini")
	}
	return nil
}

// MaxUploadBytes is the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxMB) * 1024 * 1024
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func setFloat(dst **float32, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", key, v)
	}
	f32 := float32(f)
	*dst = &f32
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	*dst = b
	return nil
}
