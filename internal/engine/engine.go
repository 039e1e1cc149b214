package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jothihub/jothi-gateway/internal/auth"
	"github.com/jothihub/jothi-gateway/internal/bell"
	"github.com/jothihub/jothi-gateway/internal/bus"
	"github.com/jothihub/jothi-gateway/internal/channel"
	"github.com/jothihub/jothi-gateway/internal/command"
	"github.com/jothihub/jothi-gateway/internal/directory"
	"github.com/jothihub/jothi-gateway/internal/events"
	"github.com/jothihub/jothi-gateway/internal/metrics"
	"github.com/jothihub/jothi-gateway/internal/session"
)

// Ringer controls the physical bell and speakers
type Ringer interface {
	PlayAudio(ctx context.Context, path string) error
	RingSchedule(times []string, todayOnly bool) error
	RingAssemblyBell(durationSeconds int) error
}

// Speaker synthesizes and plays announcements
type Speaker interface {
	Speak(ctx context.Context, text, voice string) error
	ReloadKey(key string) error
}

// ScheduleStore is the persisted named-schedule collection
type ScheduleStore interface {
	Names() []string
	Get(name string) ([]string, bool)
	Create(name string, times []string) error
	Rename(oldName, newName string) error
	Delete(name string) error
}

// CredentialReloader swaps messaging transport credentials at runtime
type CredentialReloader interface {
	Reload(phoneNumberID, accessToken string) error
}

// Submitter accepts fire-and-forget actions. *worker.Pool satisfies it.
type Submitter interface {
	Submit(name string, fn func())
}

// voiceModels maps the announcer's menu choice to a voice
var voiceModels = map[string]string{
	"1": "alloy",
	"2": "nova",
	"3": "onyx",
	"4": "offline",
}

const aboutText = "JOTHI - School Bell System\n\n" +
	"This project is built as a tribute and a practical school bell/announcement system."

// Deps collects the engine's collaborators
type Deps struct {
	Directory *directory.Directory
	Sessions  *session.Store
	Schedules ScheduleStore
	Ringer    Ringer
	Speaker   Speaker
	Assembly  *bell.Assembly
	WACreds   CredentialReloader
	Pool      Submitter
	Hub       *events.Hub
	Bus       *bus.Publisher
	Logger    *slog.Logger
}

// Engine is the command session state machine. One instance holds
// explicit references to the directory, session store, and credential
// holders; request handlers get it by reference.
type Engine struct {
	dir       *directory.Directory
	sessions  *session.Store
	schedules ScheduleStore
	ringer    Ringer
	speaker   Speaker
	assembly  *bell.Assembly
	waCreds   CredentialReloader
	pool      Submitter
	hub       *events.Hub
	bus       *bus.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// New creates the engine
func New(d Deps) *Engine {
	return &Engine{
		dir:       d.Directory,
		sessions:  d.Sessions,
		schedules: d.Schedules,
		ringer:    d.Ringer,
		speaker:   d.Speaker,
		assembly:  d.Assembly,
		waCreds:   d.WACreds,
		pool:      d.Pool,
		hub:       d.Hub,
		bus:       d.Bus,
		logger:    d.Logger,
		now:       time.Now,
	}
}

// HandleEvent processes one inbound chat event. The caller runs it on
// its own goroutine; the per-identity lock below keeps concurrent
// events for the same sender from interleaving over session state.
func (e *Engine) HandleEvent(ctx context.Context, ev channel.Event, conn channel.Conn) {
	identity := directory.Normalize(ev.From)
	if identity == "" {
		e.logger.Warn("Dropping event without sender", "channel", ev.Channel, "id", ev.ID)
		return
	}
	metrics.InboundMessages.WithLabelValues(ev.Channel, ev.Type).Inc()

	release := e.sessions.Acquire(identity)
	defer release()

	role := e.dir.ResolveRole(identity)
	e.logger.Info("Inbound event", "channel", ev.Channel, "identity", identity, "type", ev.Type, "role", role)

	if role == directory.RoleUnauthorized {
		e.reply(ctx, conn, identity, "You are not authorized to use this bot. Contact admin.")
		return
	}

	// a live session consumes the event no matter what it looks like
	if sess, ok := e.sessions.Get(identity); ok {
		e.continueSession(ctx, identity, sess, ev, conn)
		return
	}

	switch ev.Type {
	case channel.TypeText:
		cmd, isCommand := command.Parse(ev.Text)
		if !isCommand {
			e.reply(ctx, conn, identity, "Welcome to JOTHI bot. Type /help to see commands.")
			return
		}
		e.dispatch(ctx, identity, role, cmd, conn)
	case channel.TypeAudio:
		e.reply(ctx, conn, identity, "To use a voice note for announcement, please send /announce voice first.")
	default:
		e.reply(ctx, conn, identity, "Message type not supported. Use /help")
	}
}

// dispatch routes a fresh command through the authorization gate to its
// handler
func (e *Engine) dispatch(ctx context.Context, identity string, role directory.Role, cmd command.Command, conn channel.Conn) {
	e.emit("command", identity, map[string]string{"command": cmd.Name})

	if !auth.Known(cmd.Name) {
		metrics.Commands.WithLabelValues(cmd.Name, "unknown").Inc()
		e.reply(ctx, conn, identity, "Unknown command. Type /help")
		return
	}
	if !auth.IsAllowed(role, cmd.Name) {
		metrics.Commands.WithLabelValues(cmd.Name, "denied").Inc()
		e.reply(ctx, conn, identity, "Not allowed.")
		return
	}
	metrics.Commands.WithLabelValues(cmd.Name, "ok").Inc()

	switch cmd.Name {
	case "help":
		e.handleHelp(ctx, identity, role, conn)
	case "about":
		e.handleAbout(ctx, identity, conn)
	case "bellmode":
		e.handleBellMode(ctx, identity, cmd, conn)
	case "assembly":
		e.handleAssembly(ctx, identity, cmd, conn)
	case "announce", "announcement":
		e.handleAnnounce(ctx, identity, cmd, conn)
	case "schedule":
		e.handleSchedule(ctx, identity, cmd, conn)
	case "settings":
		e.handleSettings(ctx, identity, cmd, conn)
	}
}

// continueSession resolves an event against the sender's expected
// state. Invalid input re-prompts and keeps the session; collaborator
// failures reply specifically and clear it.
func (e *Engine) continueSession(ctx context.Context, identity string, sess session.Session, ev channel.Event, conn channel.Conn) {
	switch st := sess.State.(type) {
	case session.AwaitingVoiceModel:
		e.continueVoiceModel(ctx, identity, st, ev, conn)
	case session.AwaitingVoiceNote:
		e.continueVoiceNote(ctx, identity, ev, conn)
	case session.AwaitingTodayTimes:
		e.continueTodayTimes(ctx, identity, ev, conn)
	default:
		e.logger.Error("Session in unknown state", "identity", identity)
		e.sessions.Clear(identity)
		e.reply(ctx, conn, identity, "Session expired or unknown.")
	}
}

func (e *Engine) continueVoiceModel(ctx context.Context, identity string, st session.AwaitingVoiceModel, ev channel.Event, conn channel.Conn) {
	if ev.Type != channel.TypeText {
		e.reply(ctx, conn, identity, "Please send model number 1/2/3/4 as text.")
		return
	}
	choice := strings.TrimSpace(ev.Text)
	voice, ok := voiceModels[choice]
	if !ok {
		e.reply(ctx, conn, identity, "Invalid choice. Send 1,2,3 or 4.")
		return
	}

	// acknowledgment first, then submission: the user is told the
	// announcement started, not that it finished
	e.reply(ctx, conn, identity, "Announcement played using model "+choice)
	body := st.Body
	e.submit("announce_tts", identity, func() {
		if err := e.speaker.Speak(context.Background(), body, voice); err != nil {
			e.logger.Error("Announcement failed", "identity", identity, "voice", voice, "error", err)
		}
	})
	e.sessions.Clear(identity)
}

func (e *Engine) continueVoiceNote(ctx context.Context, identity string, ev channel.Event, conn channel.Conn) {
	if ev.Type != channel.TypeAudio {
		e.reply(ctx, conn, identity, "Please send a voice note (audio message).")
		return
	}

	path, err := conn.FetchMedia(ctx, ev.MediaID)
	if err != nil {
		e.logger.Error("Voice note fetch failed", "identity", identity, "media_id", ev.MediaID, "error", err)
		e.reply(ctx, conn, identity, "Failed to download voice.")
		e.sessions.Clear(identity)
		return
	}

	e.reply(ctx, conn, identity, "Voice announcement received and played.")
	e.submit("play_voice_note", identity, func() {
		if err := e.ringer.PlayAudio(context.Background(), path); err != nil {
			e.logger.Error("Voice note playback failed", "identity", identity, "path", path, "error", err)
		}
	})
	e.sessions.Clear(identity)
}

func (e *Engine) continueTodayTimes(ctx context.Context, identity string, ev channel.Event, conn channel.Conn) {
	if ev.Type != channel.TypeText {
		e.reply(ctx, conn, identity, "Please send the times as text. Example: 09:00,10:30,12:00")
		return
	}

	times := command.SplitTimes(ev.Text)
	if len(times) == 0 || !allValidTimes(times) {
		e.reply(ctx, conn, identity, "Invalid times. Send comma separated 24-hour HH:MM values. Example: 09:00,10:30,12:00")
		return
	}

	e.reply(ctx, conn, identity, "Today's bell times set.")
	e.submit("ring_today", identity, func() {
		if err := e.ringer.RingSchedule(times, true); err != nil {
			e.logger.Error("Today schedule failed", "identity", identity, "error", err)
		}
	})
	e.sessions.Clear(identity)
}

func allValidTimes(times []string) bool {
	for _, t := range times {
		if !command.ValidTime(t) {
			return false
		}
	}
	return true
}

// submit hands an action to the pool. The acknowledgment reply happens
// before the action necessarily runs; the user is told it started, not
// that it finished.
func (e *Engine) submit(kind, identity string, fn func()) {
	metrics.Actions.WithLabelValues(kind).Inc()
	e.emit("action", identity, map[string]string{"kind": kind})
	e.pool.Submit(kind, fn)
}

// reply sends text back to the sender. At-most-once, best effort:
// delivery failures are logged, not retried.
func (e *Engine) reply(ctx context.Context, conn channel.Conn, identity, body string) {
	if err := conn.SendText(ctx, identity, body); err != nil {
		metrics.Replies.WithLabelValues(conn.Name(), "error").Inc()
		e.logger.Error("Reply delivery failed", "channel", conn.Name(), "identity", identity, "error", err)
		return
	}
	metrics.Replies.WithLabelValues(conn.Name(), "ok").Inc()
}

func (e *Engine) emit(kind, identity string, detail map[string]string) {
	if e.hub != nil {
		e.hub.Broadcast(events.Event{Type: kind, Identity: identity, Detail: detail})
	}
	if e.bus != nil {
		fields := make(map[string]interface{}, len(detail))
		for k, v := range detail {
			fields[k] = v
		}
		e.bus.Publish(kind, identity, fields)
	}
}

// ConsumeAdapter drains a polling adapter, handling each event on its
// own goroutine
func (e *Engine) ConsumeAdapter(ctx context.Context, adapter channel.Adapter) {
	for ev := range adapter.Incoming() {
		go e.HandleEvent(ctx, *ev, adapter)
	}
}
