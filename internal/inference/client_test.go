package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompleteSendsChatRequest(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "extracted text"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "sk-test", Model: "gpt-test"})
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), []Message{
		TextMessage("system", "convert"),
		TextMessage("user", "the document"),
	})
	require.NoError(t, err)
	require.Equal(t, "extracted text", reply)
	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "gpt-test", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	require.Equal(t, "system", gotBody.Messages[0].Role)
}

func TestCompleteRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{TextMessage("user", "hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 429")
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), []Message{TextMessage("user", "hi")})
	require.Error(t, err)
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestImageMessageCarriesParts(t *testing.T) {
	msg := ImageMessage("look at this", "http://localhost/files/a?sig=x")
	parts, ok := msg.Content.([]ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	require.Equal(t, "text", parts[0].Type)
	require.Equal(t, "image_url", parts[1].Type)
	require.Equal(t, "http://localhost/files/a?sig=x", parts[1].ImageURL.URL)
}
