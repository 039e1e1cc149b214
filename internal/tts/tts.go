package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// VoiceOffline marks the local engine instead of an online voice
const VoiceOffline = "offline"

// Player plays a synthesized audio file
type Player interface {
	Play(ctx context.Context, path string) error
}

// Config holds speaker settings
type Config struct {
	KeyPath        string
	BaseURL        string
	Model          string
	OfflineCommand string
	OutDir         string
}

// Speaker synthesizes announcements. Online voices go through an
// OpenAI-style speech endpoint; the offline engine is an external
// command. A missing or broken online setup falls back to offline
// rather than failing the announcement.
type Speaker struct {
	mu     sync.RWMutex
	apiKey string

	keyPath        string
	baseURL        string
	model          string
	offlineCommand string
	outDir         string
	httpClient     *http.Client
	player         Player
	logger         *slog.Logger
}

// NewSpeaker builds a speaker, reading the API key file if present
func NewSpeaker(cfg Config, player Player, logger *slog.Logger) *Speaker {
	s := &Speaker{
		keyPath:        cfg.KeyPath,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		model:          cfg.Model,
		offlineCommand: cfg.OfflineCommand,
		outDir:         cfg.OutDir,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		player:         player,
		logger:         logger,
	}
	data, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		logger.Warn("No OpenAI key loaded, online voices unavailable", "path", cfg.KeyPath)
		return s
	}
	s.apiKey = strings.TrimSpace(string(data))
	return s
}

// ReloadKey persists a new API key and swaps it in. A failed write
// keeps the previous key active.
func (s *Speaker) ReloadKey(key string) error {
	if err := os.WriteFile(s.keyPath, []byte(key), 0o600); err != nil {
		return fmt.Errorf("failed to persist OpenAI key: %w", err)
	}
	s.mu.Lock()
	s.apiKey = strings.TrimSpace(key)
	s.mu.Unlock()
	return nil
}

// Configured reports whether an online voice can be attempted
func (s *Speaker) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey != ""
}

// Speak synthesizes and plays text with the chosen voice. voice is an
// online voice name or VoiceOffline.
func (s *Speaker) Speak(ctx context.Context, text, voice string) error {
	if voice == VoiceOffline {
		return s.speakOffline(ctx, text)
	}
	if err := s.speakOnline(ctx, text, voice); err != nil {
		s.logger.Warn("Online TTS failed, falling back offline", "voice", voice, "error", err)
		return s.speakOffline(ctx, text)
	}
	return nil
}

func (s *Speaker) speakOffline(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, s.offlineCommand, text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("offline TTS failed: %w", err)
	}
	return nil
}

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

func (s *Speaker) speakOnline(ctx context.Context, text, voice string) error {
	s.mu.RLock()
	key := s.apiKey
	s.mu.RUnlock()
	if key == "" {
		return fmt.Errorf("no API key configured")
	}

	body, err := json.Marshal(speechRequest{Model: s.model, Voice: voice, Input: text})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/audio/speech", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("speech API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	out := filepath.Join(s.outDir, "announce_"+voice+".mp3")
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(out)
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	f.Close()

	return s.player.Play(ctx, out)
}
