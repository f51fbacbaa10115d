package generator

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

var (
	encMu     sync.Mutex
	encByName = map[string]*tiktoken.Tiktoken{}
)

// EstimateTokens approximates how many tokens text costs for model. OpenRouter ids
// carry a vendor prefix ("openai/gpt-4"); unknown models use cl100k_base.
func EstimateTokens(model, text string) (int, error) {
	enc, err := encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}

	encMu.Lock()
	defer encMu.Unlock()
	if enc, ok := encByName[model]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	encByName[model] = enc
	return enc, nil
}
