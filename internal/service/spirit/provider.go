package spirit

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ChatProvider 基于 eino chain 调用大模型生成 spirit 回复。
type ChatProvider struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChatProvider compiles a system+user prompt chain in front of chatModel.
func NewChatProvider(ctx context.Context, chatModel einomodel.BaseChatModel) (*ChatProvider, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile spirit chain: %w", err)
	}
	return &ChatProvider{chain: runnable}, nil
}

// Generate runs the chain once. TopK has no portable chat-model option and is
// left to the model configuration.
func (p *ChatProvider) Generate(ctx context.Context, userPrompt, systemInstruction string, sampling Sampling) (string, error) {
	input := map[string]any{
		"system": systemInstruction,
		"query":  userPrompt,
	}

	var opts []einomodel.Option
	if sampling.Temperature > 0 {
		opts = append(opts, einomodel.WithTemperature(sampling.Temperature))
	}
	if sampling.TopP > 0 {
		opts = append(opts, einomodel.WithTopP(sampling.TopP))
	}
	if sampling.MaxOutputTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(sampling.MaxOutputTokens))
	}

	msg, err := p.chain.Invoke(ctx, input, compose.WithChatModelOption(opts...))
	if err != nil {
		return "", fmt.Errorf("failed to run spirit chain: %w", err)
	}
	if msg == nil {
		return "", ErrEmptyResponse
	}
	return msg.Content, nil
}
