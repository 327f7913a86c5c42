package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks configuration that cannot be used to build the service.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	apiKeyEnv    = "GROQ_API_KEY"
	runnerURLEnv = "CODE_RUNNER_API_URL"
)

type Config struct {
	Log      Log      `yaml:"log"`
	Server   Server   `yaml:"server"`
	Models   Models   `yaml:"models"`
	Executor Executor `yaml:"executor"`
	Search   Search   `yaml:"search"`
	MCP      MCP      `yaml:"mcp"`
	Agent    Agent    `yaml:"agent"`
	Engine   Engine   `yaml:"engine"`
}

type Models struct {
	// Judge model, used to extract code from replies
	Hot ModelConfig `yaml:"hot" validate:"required"`
	// Reply model
	Cold ModelConfig `yaml:"cold" validate:"required"`
	// Summary model
	Summarizer ModelConfig `yaml:"summarizer" validate:"required"`
}

type ModelConfig struct {
	// OpenAI-compatible base url
	BaseURL string `yaml:"base_url" example:"https://api.groq.com/openai/v1" validate:"required,url"`
	// API token, falls back to GROQ_API_KEY
	Token string `yaml:"token" example:"gsk_abc123456789DEF789ghi012JKL345mno678PQR901" validate:"required"`
	// Model name
	Model string `yaml:"model" example:"mistral-saba-24b" validate:"required"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"0.3" validate:"gte=0,lte=2"`
	// Force the model to pick one of the bound tools
	ForceToolChoice bool `yaml:"force_tool_choice" example:"false"`
	// HTTP timeout of a single model call
	Timeout time.Duration `yaml:"timeout" example:"60s" validate:"gt=0"`
}

type Executor struct {
	// Code runner endpoint, falls back to CODE_RUNNER_API_URL
	URL string `yaml:"url" example:"http://localhost:8000/run" validate:"required,url"`
	// HTTP timeout of a single execution
	Timeout time.Duration `yaml:"timeout" example:"30s" validate:"gt=0"`
}

type Search struct {
	// Bind the web search tool to the reply model
	Enabled bool `yaml:"enabled" example:"true"`
	// Max DuckDuckGo results returned to the model
	MaxResults int `yaml:"max_results" example:"5" validate:"gte=1,lte=25"`
	// User agent sent to DuckDuckGo
	UserAgent string `yaml:"user_agent"`
}

type MCP struct {
	// Stdio MCP servers whose tools are exposed to the reply model
	Servers []MCPServer `yaml:"servers" validate:"dive"`
}

type MCPServer struct {
	Name    string   `yaml:"name" example:"memory" validate:"required,alphanum"`
	Command string   `yaml:"command" example:"docker" validate:"required"`
	Args    []string `yaml:"args" example:"[run, --rm, -i, mcp/memory]"`
	Env     []string `yaml:"env"`
}

type Agent struct {
	// Message count above which the conversation is summarized first
	SummaryThreshold int `yaml:"summary_threshold" example:"5" validate:"gte=1"`
	// Messages kept after summarization
	KeepMessages int `yaml:"keep_messages" example:"5" validate:"gte=1,ltefield=SummaryThreshold"`
	// Corrective turns allowed before giving up
	MaxReflections int `yaml:"max_reflections" example:"3" validate:"gte=0"`
	// Tool rounds the reply model may take in a single turn
	MaxToolSteps int `yaml:"max_tool_steps" example:"4" validate:"gte=0"`
}

type Engine struct {
	// Chat workers running in parallel
	Workers int `yaml:"workers" example:"4" validate:"gte=1"`
	// Pending chats before new ones are rejected
	QueueSize int `yaml:"queue_size" example:"64" validate:"gte=1"`
}

type Server struct {
	// Listen address
	Addr string `yaml:"addr" example:":8080" validate:"required"`
	// Upper bound of a single chat request
	RequestTimeout time.Duration `yaml:"request_timeout" example:"2m" validate:"gt=0"`
	ReadTimeout    time.Duration `yaml:"read_timeout" example:"10s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" example:"3m"`
	// Max request body size in bytes
	BodyLimit int `yaml:"body_limit" example:"1048576"`
}

type Log struct {
	// Console log level
	Level string `yaml:"level" example:"info" validate:"oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
	// Records at this level and above are sent, tagged records are sent regardless
	Level string `yaml:"level" example:"error" validate:"oneof=debug info warn error"`
}

func Default() Config {
	model := func(temperature float64) ModelConfig {
		return ModelConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "mistral-saba-24b",
			Temperature: temperature,
			Timeout:     60 * time.Second,
		}
	}

	return Config{
		Log: Log{
			Level: "debug",
			Telegram: TelegramLog{
				Level: "error",
			},
		},
		Server: Server{
			Addr:           ":8080",
			RequestTimeout: 2 * time.Minute,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   3 * time.Minute,
			BodyLimit:      1 << 20,
		},
		Models: Models{
			Hot:        model(0.6),
			Cold:       model(0.3),
			Summarizer: model(0.5),
		},
		Executor: Executor{
			Timeout: 30 * time.Second,
		},
		Search: Search{
			Enabled:    true,
			MaxResults: 5,
			UserAgent:  "Mozilla/5.0 (compatible; tutorbot/1.0)",
		},
		Agent: Agent{
			SummaryThreshold: 5,
			KeepMessages:     5,
			MaxReflections:   3,
			MaxToolSteps:     4,
		},
		Engine: Engine{
			Workers:   4,
			QueueSize: 64,
		},
	}
}

func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	result := Default()

	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w: %w", ErrInvalidConfig, err)
	}

	if apiKey := os.Getenv(apiKeyEnv); apiKey != "" {
		for _, model := range []*ModelConfig{&result.Models.Hot, &result.Models.Cold, &result.Models.Summarizer} {
			if model.Token == "" {
				model.Token = apiKey
			}
		}
	}
	if result.Executor.URL == "" {
		result.Executor.URL = os.Getenv(runnerURLEnv)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w: %w", ErrInvalidConfig, err)
	}

	return &result, nil
}
