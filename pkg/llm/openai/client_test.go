package openai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longformai/longmem-go/pkg/llm/openai"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := openai.NewClient(&openai.Config{Model: "gpt-4o-mini"})
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	client, err := openai.NewClient(&openai.Config{
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		BaseURL: "https://gateway.internal/v1",
	})
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}
