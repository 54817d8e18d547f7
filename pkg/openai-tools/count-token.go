// Package openai_tools contains helpers around the OpenAI chat API.
package openai_tools

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
)

const fallbackEncoding = "cl100k_base"

// CountToken estimates the token footprint of messages for the given model,
// following the accounting from OpenAI's cookbook: a fixed per-message
// overhead plus the encoded role and content, plus the reply priming.
func CountToken(messages []openai.ChatCompletionMessage, model string) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return 0, fmt.Errorf("failed to get encoding for model %s: %w", model, err)
		}
	}

	const tokensPerMessage = 4
	total := 3
	for _, message := range messages {
		total += tokensPerMessage
		total += len(enc.Encode(message.Role, nil, nil))
		total += len(enc.Encode(message.Content, nil, nil))
	}
	return total, nil
}
