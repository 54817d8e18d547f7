package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/dkurbatov/ai-assistant-bot/config"
	openai_tools "github.com/dkurbatov/ai-assistant-bot/pkg/openai-tools"
)

var (
	ErrPromptTooLong = errors.New("prompt exceeds the token limit")
)

// OpenAIUsecase is the completion and transcription provider. Single attempt
// per call, bounded by the configured request timeout; failures surface as
// plain errors.
type OpenAIUsecase struct {
	cfg config.OpenAI
}

func NewOpenAIUsecase(cfg config.OpenAI) *OpenAIUsecase {
	return &OpenAIUsecase{
		cfg: cfg,
	}
}

// Complete sends a single-turn chat completion for prompt and returns the
// answer text.
func (o *OpenAIUsecase) Complete(ctx context.Context, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}

	if o.cfg.MaxPromptTokens > 0 {
		tokenCount, err := openai_tools.CountToken(messages, o.cfg.Model)
		if err == nil && tokenCount > o.cfg.MaxPromptTokens {
			return "", ErrPromptTooLong
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	resp, err := o.newClient().CreateChatCompletion(
		ctx, openai.ChatCompletionRequest{
			Model:       o.cfg.Model,
			Temperature: o.cfg.ModelTemperature,
			TopP:        1,
			N:           1,
			Messages:    messages,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe recognizes speech in audio (an ogg voice payload) and returns
// the text.
func (o *OpenAIUsecase) Transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	resp, err := o.newClient().CreateTranscription(
		ctx, openai.AudioRequest{
			Model:    o.cfg.TranscriptionModel,
			Reader:   bytes.NewReader(audio),
			FilePath: "voice.ogg",
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription: %w", err)
	}
	return resp.Text, nil
}

func (o *OpenAIUsecase) newClient() *openai.Client {
	clientConfig := openai.DefaultConfig(o.cfg.OpenAIAPIKey)
	if o.cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = o.cfg.OpenAIBaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
