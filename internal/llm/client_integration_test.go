//go:build integration

package llm

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_Complete_RealAPI(t *testing.T) {
	apiKey := os.Getenv("NOCTURNE_MODEL_API_KEY")
	if apiKey == "" {
		t.Skip("NOCTURNE_MODEL_API_KEY not set, skipping integration test")
	}

	client, err := NewClient(Config{
		APIKey:  apiKey,
		BaseURL: os.Getenv("NOCTURNE_MODEL_BASE_URL"),
		Model:   os.Getenv("NOCTURNE_MODEL_NAME"),
	})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), `Return a JSON object {"ok": true}. JSON only.`, 0.1)
	require.NoError(t, err)

	var parsed map[string]any
	assert.NoError(t, json.Unmarshal([]byte(text), &parsed))
}
