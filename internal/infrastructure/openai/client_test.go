package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/skinlens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletions serves /v1/chat/completions with a fixed assistant message
func fakeCompletions(t *testing.T, content string, inspect func(openai.ChatCompletionRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if inspect != nil {
			inspect(req)
		}

		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(serverURL string) *Client {
	return NewClient(Config{APIKey: "sk-test", BaseURL: serverURL + "/v1"})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{APIKey: "sk-test"})

	assert.NotNil(t, client.Client)
	assert.Equal(t, DefaultModel, client.Model)
}

func TestStructure_Success(t *testing.T) {
	server := fakeCompletions(t, "```json\n"+validBody+"\n```", func(req openai.ChatCompletionRequest) {
		assert.Equal(t, DefaultModel, req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "cosmetic ingredient Glycerin")
		assert.Contains(t, req.Messages[0].Content, "Context: first passage\nsecond passage")
		assert.Less(t, req.Temperature, float32(1e-6))
	})
	defer server.Close()

	client := newTestClient(server.URL)

	record, err := client.Structure(context.Background(), "Glycerin", []string{"first passage", "second passage"})

	require.NoError(t, err)
	assert.Equal(t, &domain.IngredientRecord{
		Ingredient:  "Glycerin",
		Purpose:     "Humectant",
		SafetyLevel: 9,
		Warnings:    "None known",
		SkinTypes:   "All skin types",
	}, record)
}

func TestStructure_IngredientPassthrough(t *testing.T) {
	names := []string{"Water", "Aqua (Water)", "CI 77491", "Retinyl Palmitate", "1,2-Hexanediol"}

	server := fakeCompletions(t, validBody, nil)
	defer server.Close()

	client := newTestClient(server.URL)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			record, err := client.Structure(context.Background(), name, nil)

			require.NoError(t, err)
			assert.Equal(t, name, record.Ingredient)
		})
	}
}

func TestStructure_MalformedResponse(t *testing.T) {
	responses := map[string]string{
		"prose":          "I could not find information on that ingredient.",
		"missing key":    `{"purpose":"x","safety_level":5,"warnings":""}`,
		"fenced partial": "```json\n{\"purpose\":\"x\"}\n```",
		"out of range":   `{"purpose":"x","safety_level":42,"warnings":"","skin_types":"All"}`,
	}

	for name, content := range responses {
		t.Run(name, func(t *testing.T) {
			server := fakeCompletions(t, content, nil)
			defer server.Close()

			client := newTestClient(server.URL)

			record, err := client.Structure(context.Background(), "BadActor", []string{"p"})

			assert.Nil(t, record)
			assert.ErrorIs(t, err, domain.ErrStructuring)
		})
	}
}

func TestStructure_APIError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached","type":"requests"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	record, err := client.Structure(context.Background(), "Water", nil)

	assert.Nil(t, record)
	assert.ErrorIs(t, err, domain.ErrStructuring)
	assert.Equal(t, 1, calls, "structuring must not retry")
}

func TestStructure_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Structure(context.Background(), "Water", nil)

	assert.ErrorIs(t, err, domain.ErrStructuring)
}

func TestStructure_ReasoningModelUsesCompletionTokens(t *testing.T) {
	server := fakeCompletions(t, validBody, func(req openai.ChatCompletionRequest) {
		assert.Equal(t, "o3-mini", req.Model)
		assert.Zero(t, req.MaxTokens)
		assert.Equal(t, maxTokens, req.MaxCompletionTokens)
	})
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1/", Model: "o3-mini"})

	_, err := client.Structure(context.Background(), "Water", nil)

	require.NoError(t, err)
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt("Niacinamide", []string{"Vitamin B3.", "Brightens skin."})

	require.NoError(t, err)
	assert.Contains(t, prompt, "cosmetic ingredient Niacinamide")
	assert.Contains(t, prompt, "CosmeticsInfo.org and INCIDecoder")
	assert.Contains(t, prompt, "Context: Vitamin B3.\nBrightens skin.")
	for _, key := range []string{`"purpose"`, `"safety_level"`, `"warnings"`, `"skin_types"`} {
		assert.Contains(t, prompt, key)
	}
	assert.True(t, strings.HasSuffix(prompt, "no markdown formatting."))
}
