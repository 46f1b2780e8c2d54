package chat

import (
	"context"
	"contract-insight/vars"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// NewChatModel 按配置创建模型客户端，调用方负责注入到需要的地方
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOllama, "":
		return CreateOllamaChatModel(ctx, cfg.BaseURL, cfg.Model)
	case ProviderOpenAI:
		return CreateOpenAIChatModel(ctx, cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderGemini:
		gm, err := NewGeminiChatModel(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return gm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// EnvConfig 从环境变量读取当前 LLM_PROVIDER 对应的配置
func EnvConfig() Config {
	switch strings.ToLower(vars.LLM_PROVIDER) {
	case ProviderOpenAI:
		return Config{Provider: ProviderOpenAI, BaseURL: vars.OPENAI_BASE_URL, APIKey: vars.OPENAI_API_KEY, Model: vars.OPENAI_MODEL}
	case ProviderGemini:
		return Config{Provider: ProviderGemini, APIKey: vars.GEMINI_API_KEY, Model: vars.GEMINI_MODEL}
	default:
		return Config{Provider: ProviderOllama, BaseURL: vars.OLLAMA_PATH, Model: vars.OLLAMA_MODEL}
	}
}
