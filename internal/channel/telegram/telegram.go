package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jothihub/jothi-gateway/internal/channel"
)

// Adapter long-polls the Telegram Bot API and maps updates into
// channel events. Voice notes come through as audio events whose
// MediaID is the Telegram file id.
type Adapter struct {
	bot        *tgbotapi.BotAPI
	token      string
	mediaDir   string
	incoming   chan *channel.Event
	done       chan struct{}
	stopOnce   sync.Once
	httpClient *http.Client
}

// NewAdapter creates a Telegram adapter
func NewAdapter(token, mediaDir string) *Adapter {
	return &Adapter{
		token:      token,
		mediaDir:   mediaDir,
		incoming:   make(chan *channel.Event, 100),
		done:       make(chan struct{}),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the channel name
func (a *Adapter) Name() string {
	return "telegram"
}

// Start connects the bot and begins polling
func (a *Adapter) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(a.token)
	if err != nil {
		return err
	}
	a.bot = bot

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	go a.forward(a.bot.GetUpdatesChan(u))
	return nil
}

// forward maps updates into channel events until the update stream or
// the adapter stops. It owns closing incoming, so Stop can never race
// it into a send on a closed channel.
func (a *Adapter) forward(updates <-chan tgbotapi.Update) {
	defer close(a.incoming)
	for {
		select {
		case <-a.done:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			ev := &channel.Event{
				ID:      strconv.Itoa(update.Message.MessageID),
				Channel: "telegram",
				From:    strconv.FormatInt(update.Message.Chat.ID, 10),
			}
			switch {
			case update.Message.Voice != nil:
				ev.Type = channel.TypeAudio
				ev.MediaID = update.Message.Voice.FileID
			case update.Message.Text != "":
				ev.Type = channel.TypeText
				ev.Text = update.Message.Text
			default:
				ev.Type = "unsupported"
			}
			select {
			case a.incoming <- ev:
			case <-a.done:
				return
			}
		}
	}
}

// Stop stops the adapter
func (a *Adapter) Stop() error {
	a.stopOnce.Do(func() {
		if a.bot != nil {
			a.bot.StopReceivingUpdates()
		}
		close(a.done)
	})
	return nil
}

// Incoming returns the event stream
func (a *Adapter) Incoming() <-chan *channel.Event {
	return a.incoming
}

// SendText delivers a reply. to is the normalized identity; the chat id
// is its digits.
func (a *Adapter) SendText(ctx context.Context, to, body string) error {
	chatID, err := strconv.ParseInt(strings.TrimPrefix(to, "+"), 10, 64)
	if err != nil {
		return fmt.Errorf("bad telegram chat id %q: %w", to, err)
	}
	_, err = a.bot.Send(tgbotapi.NewMessage(chatID, body))
	return err
}

// FetchMedia downloads a voice note by file id and returns the local
// path
func (a *Adapter) FetchMedia(ctx context.Context, mediaID string) (string, error) {
	file, err := a.bot.GetFile(tgbotapi.FileConfig{FileID: mediaID})
	if err != nil {
		return "", fmt.Errorf("failed to resolve telegram file: %w", err)
	}

	url := file.Link(a.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("telegram media download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("telegram media download returned status %d", resp.StatusCode)
	}

	ext := filepath.Ext(file.FilePath)
	if ext == "" {
		ext = ".oga"
	}
	out := filepath.Join(a.mediaDir, "tg_media_"+mediaID+ext)
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return out, nil
}
