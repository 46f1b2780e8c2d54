package chat

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// CreateOpenAIChatModel baseURL 为空时使用官方地址，也可以指向任何兼容 OpenAI 协议的服务
func CreateOpenAIChatModel(ctx context.Context, baseURL, apiKey, modelName string) (model.ToolCallingChatModel, error) {
	temperature := float32(0.2)
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       modelName,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model failed: %w", err)
	}
	return chatModel, nil
}
