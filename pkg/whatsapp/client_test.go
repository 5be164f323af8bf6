package whatsapp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/whatsapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstance(apiURL string) *models.Instance {
	return &models.Instance{
		ID:          "inst-1",
		OwnerID:     "owner-1",
		Name:        "main",
		APIURL:      apiURL,
		APIKey:      "secret-key",
		InstanceKey: "abc123",
	}
}

func TestClientSendText(t *testing.T) {
	var gotPath, gotAPIKey string

	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := whatsapp.NewClient(5 * time.Second)

	err := client.SendText(context.Background(), testInstance(server.URL), "+5511999990000", "Oi Maria")
	require.NoError(t, err)

	assert.Equal(t, "/message/text/abc123", gotPath)
	assert.Equal(t, "secret-key", gotAPIKey)
	assert.Equal(t, "+5511999990000", gotBody["number"])
	assert.Equal(t, "Oi Maria", gotBody["text"])
}

func TestClientSendMedia(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := whatsapp.NewClient(5 * time.Second)

	err := client.SendMedia(context.Background(), testInstance(server.URL), "+5511999990000", "https://cdn.example.com/promo.png", "Promo!")
	require.NoError(t, err)

	assert.Equal(t, "image", gotBody["media_type"])
	assert.Equal(t, "Promo!", gotBody["caption"])
}

func TestClientNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid api key"}`))
	}))
	defer server.Close()

	client := whatsapp.NewClient(5 * time.Second)

	err := client.SendText(context.Background(), testInstance(server.URL), "+5511999990000", "Oi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestMediaTypeFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/a.jpg", "image"},
		{"https://cdn.example.com/a.PNG", "image"},
		{"https://cdn.example.com/v.mp4?token=1", "video"},
		{"https://cdn.example.com/voice.ogg", "audio"},
		{"https://cdn.example.com/contract.pdf", "document"},
		{"https://cdn.example.com/noext", "document"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, whatsapp.MediaTypeFromURL(tt.url), tt.url)
	}
}
