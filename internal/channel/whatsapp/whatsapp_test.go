package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	dir := t.TempDir()
	credsPath := filepath.Join(dir, "wa_config.txt")
	require.NoError(t, os.WriteFile(credsPath, []byte("PHONE_NUMBER_ID=12345\nACCESS_TOKEN=token-abc\n"), 0o600))
	return NewClient(Config{
		CredentialsPath: credsPath,
		APIBaseURL:      baseURL,
		MediaDir:        dir,
	}, slog.Default())
}

func TestSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	require.NoError(t, c.SendText(context.Background(), "+919876543210", "hello"))

	assert.Equal(t, "/12345/messages", gotPath)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Equal(t, "919876543210", gotBody["to"], "plus sign must be stripped")
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	text := gotBody["text"].(map[string]interface{})
	assert.Equal(t, "hello", text["body"])
}

func TestSendTextUnconfigured(t *testing.T) {
	c := NewClient(Config{
		CredentialsPath: filepath.Join(t.TempDir(), "missing.txt"),
		APIBaseURL:      "http://unused",
		MediaDir:        t.TempDir(),
	}, slog.Default())

	assert.False(t, c.Configured())
	err := c.SendText(context.Background(), "+919876543210", "hello")
	assert.Error(t, err)
}

func TestSendTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	err := c.SendText(context.Background(), "+919876543210", "hello")
	assert.Error(t, err)
}

func TestReloadSwapsCredentials(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	require.NoError(t, c.Reload("99999", "token-new"))
	require.NoError(t, c.SendText(context.Background(), "+919876543210", "hi"))
	assert.Equal(t, "Bearer token-new", gotAuth)

	// persisted for the next process start
	phoneID, token, err := readCredentials(c.credsPath)
	require.NoError(t, err)
	assert.Equal(t, "99999", phoneID)
	assert.Equal(t, "token-new", token)
}

func TestFetchMedia(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/media-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "url,mime_type", r.URL.Query().Get("fields"))
		json.NewEncoder(w).Encode(map[string]string{
			"url":       srv.URL + "/download/media-1",
			"mime_type": "audio/ogg; codecs=opus",
		})
	})
	mux.HandleFunc("/download/media-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		io.WriteString(w, "voice-bytes")
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(t, srv.URL)
	path, err := c.FetchMedia(context.Background(), "media-1")
	require.NoError(t, err)
	assert.Equal(t, ".ogg", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "voice-bytes", string(data))
}

func TestFetchMediaResolveFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.FetchMedia(context.Background(), "media-x")
	assert.Error(t, err)
}

func TestExtForMime(t *testing.T) {
	assert.Equal(t, ".ogg", extForMime("audio/ogg"))
	assert.Equal(t, ".mp3", extForMime("audio/mpeg"))
	assert.Equal(t, ".bin", extForMime("application/octet-stream"))
}

func TestWebhookPayloadEvents(t *testing.T) {
	raw := `{
	  "entry": [{
	    "changes": [{
	      "value": {
	        "messages": [
	          {"id": "m1", "from": "919876543210", "type": "text", "text": {"body": "/help"}},
	          {"id": "m2", "from": "919812345678", "type": "audio", "audio": {"id": "med-9", "mime_type": "audio/ogg"}}
	        ]
	      }
	    }]
	  }]
	}`
	var payload WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	events := payload.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "919876543210", events[0].From)
	assert.Equal(t, "text", events[0].Type)
	assert.Equal(t, "/help", events[0].Text)
	assert.Equal(t, "audio", events[1].Type)
	assert.Equal(t, "med-9", events[1].MediaID)
}

func TestWebhookPayloadNoMessages(t *testing.T) {
	var payload WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(`{"entry":[{"changes":[{"value":{}}]}]}`), &payload))
	assert.Empty(t, payload.Events())
}
