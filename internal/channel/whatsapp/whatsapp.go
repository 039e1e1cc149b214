package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Config holds the client settings
type Config struct {
	CredentialsPath string
	APIBaseURL      string
	MediaDir        string
}

// Client talks to the WhatsApp Cloud API. Credentials are loaded from a
// plain key=value file and may be swapped at runtime via Reload, so all
// reads go through the mutex.
type Client struct {
	mu            sync.RWMutex
	phoneNumberID string
	accessToken   string

	credsPath  string
	baseURL    string
	mediaDir   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a client, reading credentials if the file exists. An
// absent or empty credential file leaves the client unconfigured; calls
// then fail with an explicit error instead of crashing anything.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	c := &Client{
		credsPath:  cfg.CredentialsPath,
		baseURL:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		mediaDir:   cfg.MediaDir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	phoneID, token, err := readCredentials(cfg.CredentialsPath)
	if err != nil {
		logger.Warn("WhatsApp credentials not loaded", "path", cfg.CredentialsPath, "error", err)
		return c
	}
	c.phoneNumberID = phoneID
	c.accessToken = token
	return c
}

func readCredentials(path string) (phoneID, token string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "PHONE_NUMBER_ID":
			phoneID = strings.TrimSpace(value)
		case "ACCESS_TOKEN":
			token = strings.TrimSpace(value)
		}
	}
	return phoneID, token, nil
}

// Reload persists new credentials and swaps them in. The file write
// happens first; if it fails the previous credentials stay active.
func (c *Client) Reload(phoneNumberID, accessToken string) error {
	contents := fmt.Sprintf("PHONE_NUMBER_ID=%s\nACCESS_TOKEN=%s\n", phoneNumberID, accessToken)
	if err := os.WriteFile(c.credsPath, []byte(contents), 0o600); err != nil {
		return fmt.Errorf("failed to persist WhatsApp credentials: %w", err)
	}

	c.mu.Lock()
	c.phoneNumberID = phoneNumberID
	c.accessToken = accessToken
	c.mu.Unlock()
	return nil
}

// Configured reports whether credentials are present
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phoneNumberID != "" && c.accessToken != ""
}

func (c *Client) credentials() (phoneID, token string, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.phoneNumberID == "" || c.accessToken == "" {
		return "", "", fmt.Errorf("whatsapp credentials not configured")
	}
	return c.phoneNumberID, c.accessToken, nil
}

// Name returns the channel name
func (c *Client) Name() string {
	return "whatsapp"
}

type textPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendText delivers a text message. to is the canonical +digits form;
// the Cloud API wants it without the plus.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	phoneID, token, err := c.credentials()
	if err != nil {
		return err
	}

	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(to, "+"),
		Type:             "text",
	}
	payload.Text.Body = body

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

type mediaMeta struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// resolveMediaURL asks the platform for the download URL of a media id
func (c *Client) resolveMediaURL(ctx context.Context, mediaID string) (*mediaMeta, error) {
	_, token, err := c.credentials()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?fields=url,mime_type", c.baseURL, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("media lookup returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var meta mediaMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode media metadata: %w", err)
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("media metadata has no url")
	}
	return &meta, nil
}

// FetchMedia resolves the media id and downloads the file, returning
// the local path
func (c *Client) FetchMedia(ctx context.Context, mediaID string) (string, error) {
	meta, err := c.resolveMediaURL(ctx, mediaID)
	if err != nil {
		return "", err
	}

	_, token, err := c.credentials()
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	out := filepath.Join(c.mediaDir, "wa_media_"+mediaID+extForMime(meta.MimeType))
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	c.logger.Info("Media downloaded", "media_id", mediaID, "path", out)
	return out, nil
}

func extForMime(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "mpeg"):
		return ".mp3"
	default:
		return ".bin"
	}
}
