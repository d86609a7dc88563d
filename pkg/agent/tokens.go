package agent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/surf/pkg/types"
)

// messageOverheadTokens approximates the per-message wire framing cost, per
// OpenAI's token counting guidance.
const messageOverheadTokens = 4

// Estimator counts tokens locally with the cl100k_base encoding. It backs
// usage accounting for streaming turns where the provider sends no usage
// frame; a rough character heuristic covers encoder initialization failure.
type Estimator struct {
	once    sync.Once
	encoder *tiktoken.Tiktoken
}

// NewEstimator creates a lazy estimator; the encoding loads on first use.
func NewEstimator() *Estimator {
	return &Estimator{}
}

func (e *Estimator) init() {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			e.encoder = enc
		}
	})
}

// Count returns the token count of one text.
func (e *Estimator) Count(text string) int {
	e.init()
	if e.encoder == nil {
		// Roughly four characters per token.
		return (len(text) + 3) / 4
	}
	return len(e.encoder.Encode(text, nil, nil))
}

// EstimateUsage approximates the usage of one completed exchange: the prompt
// side from the request messages, the completion side from the answer.
func (e *Estimator) EstimateUsage(prompt []*types.Message, answer string) types.TokenUsage {
	usage := types.TokenUsage{}
	for _, msg := range prompt {
		usage.PromptTokens += messageOverheadTokens
		usage.PromptTokens += e.Count(string(msg.Role))
		usage.PromptTokens += e.Count(msg.Content)
	}
	usage.CompletionTokens = e.Count(answer)
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}
