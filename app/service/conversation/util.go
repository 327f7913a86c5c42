package conversation

import (
	"net/http"

	"tutorbot/app/config"

	"github.com/samber/oops"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func createModel(cfg config.ModelConfig, handler callbacks.Handler) (llms.Model, error) {
	model, err := openai.New(
		openai.WithToken(cfg.Token),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{
			Timeout: cfg.Timeout,
		}),
		openai.WithCallback(handler),
	)
	if err != nil {
		return nil, oops.With("model", cfg.Model).Errorf("failed to create model client: %w", err)
	}

	return model, nil
}

func createClient(cfg config.ModelConfig) *goopenai.Client {
	clientConfig := goopenai.DefaultConfig(cfg.Token)

	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
	}

	return goopenai.NewClientWithConfig(clientConfig)
}

func firstChoice(resp *llms.ContentResponse) (*llms.ContentChoice, bool) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, false
	}

	return resp.Choices[0], true
}
