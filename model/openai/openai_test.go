package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/convo/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.ChatCompletionClient = (*Client)(nil)
	_ core.ModerationClient     = (*Client)(nil)
)

type captured struct {
	path   string
	auth   string
	header string
	body   map[string]any
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		got.header = r.Header.Get("X-Trace")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	sdk := openai.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("sk-default"),
		option.WithMaxRetries(0),
	)
	return NewClientFromClient(&sdk), got
}

func chatRequest() core.CompletionRequest {
	return core.CompletionRequest{
		Model:  "gpt-4o-mini",
		APIKey: "sk-request",
		Messages: []core.ChatMessage{
			{Role: core.RoleSystem, Content: "be brief"},
			{Role: core.RoleUser, Content: "hi"},
		},
		Params: map[string]any{"temperature": 0.3, "max_tokens": 50},
		Options: core.RequestOptions{
			Headers: map[string]string{"X-Trace": "abc"},
			Timeout: 5 * time.Second,
		},
	}
}

func TestClient_CreateChatCompletion(t *testing.T) {
	c, got := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Hello!"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
	})

	resp, err := c.CreateChatCompletion(context.Background(), chatRequest())
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "Hello!", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, &core.TokenUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}, resp.Usage)

	assert.Equal(t, "/chat/completions", got.path)
	assert.Equal(t, "Bearer sk-request", got.auth)
	assert.Equal(t, "abc", got.header)
	assert.Equal(t, "gpt-4o-mini", got.body["model"])
	assert.Equal(t, 0.3, got.body["temperature"])
	assert.Equal(t, float64(50), got.body["max_tokens"])

	msgs, ok := got.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestClient_CreateChatCompletion_APIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := c.CreateChatCompletion(context.Background(), chatRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api error")
}

func TestClient_CreateChatCompletionStream(t *testing.T) {
	c, got := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range []string{"Hel", "lo", " world"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o-mini\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", d)
		}
		fmt.Fprint(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o-mini\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	s, err := c.CreateChatCompletionStream(context.Background(), chatRequest())
	require.NoError(t, err)

	var chunks []string
	for d := range s.Deltas {
		chunks = append(chunks, d)
	}
	require.NoError(t, <-s.Errs)
	assert.Equal(t, []string{"Hel", "lo", " world"}, chunks)
	assert.Equal(t, true, got.body["stream"])
}

func TestClient_CreateChatCompletionStream_RejectedRequest(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad request","type":"invalid_request_error"}}`)
	})

	s, err := c.CreateChatCompletionStream(context.Background(), chatRequest())
	assert.Nil(t, s)
	assert.ErrorContains(t, err, "openai api error")
}

func TestClient_Moderate(t *testing.T) {
	c, got := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"modr-1","model":"omni-moderation-latest","results":[
			{"flagged":true,"categories":{"violence":true,"hate":false,"harassment":true},"category_scores":{}},
			{"flagged":true,"categories":{"violence":true,"self-harm":true},"category_scores":{}}]}`)
	})

	flags, err := c.Moderate(context.Background(), "some text", "sk-mod", core.RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"harassment", "self-harm", "violence"}, flags)

	assert.Equal(t, "/moderations", got.path)
	assert.Equal(t, "Bearer sk-mod", got.auth)
	assert.Equal(t, "some text", got.body["input"])
	assert.Equal(t, DefaultModerationModel, got.body["model"])
}

func TestClient_ModerateClean(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"modr-2","model":"omni-moderation-latest","results":[{"flagged":false,"categories":{"hate":false}}]}`)
	})

	flags, err := c.Moderate(context.Background(), "hello", "", core.RequestOptions{})
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestFlaggedCategories_InvalidJSON(t *testing.T) {
	assert.Empty(t, flaggedCategories("not json"))
}
