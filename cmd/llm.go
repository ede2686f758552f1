package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/campusfix/campusfix/internal/llm"
)

// newLLMClient creates an LLM client from config/env. The client checks
// for a credential itself, so this never returns nil.
func newLLMClient() *llm.Client {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return llm.NewClient(apiKey, viper.GetString("anthropic.model"))
}
