package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_KnownBackendsConstructWithoutError(t *testing.T) {
	backends := []string{"llamacpp", "openai", "custom", "groq", "openrouter", "xai", "gemini", "lmstudio", "ollama"}

	for _, name := range backends {
		t.Run(name, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: name})
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func TestNewProvider_FillsDefaultBaseURLAndModel(t *testing.T) {
	p, err := NewProvider(Config{Provider: "groq"})
	require.NoError(t, err)

	client, ok := p.(*openAICompatClient)
	require.True(t, ok)
	assert.Equal(t, "https://api.groq.com/openai", client.cfg.BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", client.cfg.Model)
}

func TestNewProvider_ExplicitConfigOverridesDefaults(t *testing.T) {
	p, err := NewProvider(Config{Provider: "openai", BaseURL: "https://proxy.internal", Model: "custom-model"})
	require.NoError(t, err)

	client, ok := p.(*openAICompatClient)
	require.True(t, ok)
	assert.Equal(t, "https://proxy.internal", client.cfg.BaseURL)
	assert.Equal(t, "custom-model", client.cfg.Model)
}

func TestNewProvider_OllamaUsesDedicatedEmbedPath(t *testing.T) {
	p, err := NewProvider(Config{Provider: "ollama"})
	require.NoError(t, err)

	_, ok := p.(*ollamaClient)
	assert.True(t, ok)
}

func TestNewProvider_RejectsUnknownBackend(t *testing.T) {
	_, err := NewProvider(Config{Provider: "doesnotexist"})
	require.Error(t, err)
}

func TestNewProvider_RejectsEmptyBackend(t *testing.T) {
	_, err := NewProvider(Config{Provider: ""})
	require.Error(t, err)
}
