package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jothihub/jothi-gateway/internal/channel"
	"github.com/jothihub/jothi-gateway/internal/command"
	"github.com/jothihub/jothi-gateway/internal/directory"
	"github.com/jothihub/jothi-gateway/internal/session"
)

func (e *Engine) handleHelp(ctx context.Context, identity string, role directory.Role, conn channel.Conn) {
	var text string
	switch role {
	case directory.RoleTeacher:
		text = "JOTHI Commands (Teacher):\n/bellmode - Bell options\n/assembly - Assembly playback\n/about - About us"
	case directory.RoleAdmin:
		text = "JOTHI Commands (Admin):\n/announcement - Make announcement\n/about - About us"
	case directory.RoleDeveloper:
		text = "JOTHI Commands (Developer):\n/bellmode\n/assembly\n/announcement\n/schedule\n/settings\n/about"
	}
	e.reply(ctx, conn, identity, text)
}

func (e *Engine) handleAbout(ctx context.Context, identity string, conn channel.Conn) {
	text := aboutText
	if len(text) > 1500 {
		text = text[:1500]
	}
	e.reply(ctx, conn, identity, text)
}

func (e *Engine) handleBellMode(ctx context.Context, identity string, cmd command.Command, conn channel.Conn) {
	parts := cmd.Fields(2)
	if len(parts) == 0 {
		e.reply(ctx, conn, identity, "Bell commands:\n/bellmode today - set today's times\n/bellmode use <name> - use saved schedule")
		return
	}

	switch strings.ToLower(parts[0]) {
	case "today":
		e.sessions.Set(identity, session.AwaitingTodayTimes{})
		e.reply(ctx, conn, identity, "Send times for TODAY as comma separated HH:MM values. Example: 09:00,10:30,12:00")
	case "use":
		if len(parts) < 2 {
			e.reply(ctx, conn, identity, "Usage: /bellmode use <name>")
			return
		}
		name := strings.TrimSpace(parts[1])
		times, ok := e.schedules.Get(name)
		if !ok {
			e.reply(ctx, conn, identity, fmt.Sprintf("Schedule '%s' not found.", name))
			return
		}
		e.reply(ctx, conn, identity, fmt.Sprintf("Started schedule '%s'", name))
		e.submit("ring_schedule", identity, func() {
			if err := e.ringer.RingSchedule(times, false); err != nil {
				e.logger.Error("Schedule ring failed", "schedule", name, "error", err)
			}
		})
	default:
		e.reply(ctx, conn, identity, "Unknown bellmode command.")
	}
}

func (e *Engine) handleAssembly(ctx context.Context, identity string, cmd command.Command, conn channel.Conn) {
	parts := cmd.Fields(2)
	if len(parts) == 0 {
		e.reply(ctx, conn, identity, "Assembly commands: /assembly <n>\n1=Prayer,2=Birthday,3=Anthem,4=Extra1,5=Extra2,6=Bell(5s),11=Prayer+Birthday")
		return
	}

	switch parts[0] {
	case "1":
		day, ok := e.assembly.Today(e.now())
		if !ok {
			e.reply(ctx, conn, identity, "No assembly configured for today.")
			return
		}
		e.playFile(ctx, identity, "assembly_prayer", day.Prayer, "Playing prayer.", conn)
	case "2":
		day, ok := e.assembly.Today(e.now())
		if !ok {
			e.reply(ctx, conn, identity, "No assembly configured for today.")
			return
		}
		e.playFile(ctx, identity, "assembly_birthday", day.Birthday, "Playing birthday song.", conn)
	case "3":
		e.playFile(ctx, identity, "assembly_anthem", e.assembly.AnthemFile, "Playing national anthem.", conn)
	case "4":
		if e.assembly.Extra1File == "" {
			e.reply(ctx, conn, identity, "Extra 1 not set.")
			return
		}
		e.playFile(ctx, identity, "assembly_extra1", e.assembly.Extra1File, "Playing Extra 1.", conn)
	case "5":
		if e.assembly.Extra2File == "" {
			e.reply(ctx, conn, identity, "Extra 2 not set.")
			return
		}
		e.playFile(ctx, identity, "assembly_extra2", e.assembly.Extra2File, "Playing Extra 2.", conn)
	case "6":
		e.reply(ctx, conn, identity, "Rung assembly bell for 5 seconds.")
		e.submit("assembly_bell", identity, func() {
			if err := e.ringer.RingAssemblyBell(5); err != nil {
				e.logger.Error("Assembly bell failed", "error", err)
			}
		})
	case "11":
		day, ok := e.assembly.Today(e.now())
		if !ok {
			e.reply(ctx, conn, identity, "No assembly configured for today.")
			return
		}
		e.reply(ctx, conn, identity, "Played prayer + birthday.")
		// prayer then birthday in order on one worker
		e.submit("assembly_prayer_birthday", identity, func() {
			if err := e.ringer.PlayAudio(context.Background(), day.Prayer); err != nil {
				e.logger.Error("Prayer playback failed", "error", err)
				return
			}
			if err := e.ringer.PlayAudio(context.Background(), day.Birthday); err != nil {
				e.logger.Error("Birthday playback failed", "error", err)
			}
		})
	default:
		e.reply(ctx, conn, identity, "Unknown assembly option.")
	}
}

func (e *Engine) playFile(ctx context.Context, identity, kind, path, ack string, conn channel.Conn) {
	e.reply(ctx, conn, identity, ack)
	e.submit(kind, identity, func() {
		if err := e.ringer.PlayAudio(context.Background(), path); err != nil {
			e.logger.Error("Audio playback failed", "kind", kind, "path", path, "error", err)
		}
	})
}

func (e *Engine) handleAnnounce(ctx context.Context, identity string, cmd command.Command, conn channel.Conn) {
	parts := cmd.Fields(2)
	if len(parts) >= 1 && strings.ToLower(parts[0]) == "text" {
		if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
			e.reply(ctx, conn, identity, "Usage: /announce text <your message>")
			return
		}
		e.sessions.Set(identity, session.AwaitingVoiceModel{Body: parts[1]})
		e.reply(ctx, conn, identity, "Choose voice model for announcement:\n1. Alloy (online)\n2. Nova (online)\n3. Onyx (online)\n4. Offline local\nSend 1/2/3/4 now.")
		return
	}
	if len(parts) >= 1 && strings.ToLower(parts[0]) == "voice" {
		e.sessions.Set(identity, session.AwaitingVoiceNote{})
		e.reply(ctx, conn, identity, "Please send the voice note now (record & send a voice message).")
		return
	}
	e.reply(ctx, conn, identity, "Announcement usage:\n/announce text <message>\n/announce voice")
}

func (e *Engine) handleSchedule(ctx context.Context, identity string, cmd command.Command, conn channel.Conn) {
	parts := cmd.Fields(2)
	sub := ""
	if len(parts) >= 1 {
		sub = strings.ToLower(parts[0])
	}

	switch {
	case sub == "list":
		names := e.schedules.Names()
		if len(names) == 0 {
			e.reply(ctx, conn, identity, "Saved schedules: (none)")
			return
		}
		e.reply(ctx, conn, identity, "Saved schedules: "+strings.Join(names, ", "))
	case sub == "create" && len(parts) >= 2:
		name, payload, ok := command.SplitPair(parts[1])
		if !ok || name == "" {
			e.reply(ctx, conn, identity, "Use: /schedule create NAME|HH:MM,HH:MM")
			return
		}
		times := command.SplitTimes(payload)
		if len(times) == 0 || !allValidTimes(times) {
			e.reply(ctx, conn, identity, "Invalid times. Use 24-hour HH:MM values, comma separated.")
			return
		}
		if err := e.schedules.Create(name, times); err != nil {
			e.logger.Error("Schedule create failed", "schedule", name, "error", err)
			e.reply(ctx, conn, identity, "Failed to save schedule.")
			return
		}
		e.reply(ctx, conn, identity, fmt.Sprintf("Schedule '%s' created.", name))
	case sub == "rename" && len(parts) >= 2:
		oldName, newName, ok := command.SplitPair(parts[1])
		if !ok || oldName == "" || newName == "" {
			e.reply(ctx, conn, identity, "Use: /schedule rename OLD|NEW")
			return
		}
		if err := e.schedules.Rename(oldName, newName); err != nil {
			e.reply(ctx, conn, identity, fmt.Sprintf("Schedule '%s' not found.", oldName))
			return
		}
		e.reply(ctx, conn, identity, fmt.Sprintf("Renamed '%s' -> '%s'", oldName, newName))
	case sub == "delete" && len(parts) >= 2:
		name := strings.TrimSpace(parts[1])
		if err := e.schedules.Delete(name); err != nil {
			e.logger.Error("Schedule delete failed", "schedule", name, "error", err)
			e.reply(ctx, conn, identity, "Failed to delete schedule.")
			return
		}
		e.reply(ctx, conn, identity, fmt.Sprintf("Deleted schedule '%s'.", name))
	default:
		e.reply(ctx, conn, identity, "Schedule commands for developer: list/create/rename/delete")
	}
}

func (e *Engine) handleSettings(ctx context.Context, identity string, cmd command.Command, conn channel.Conn) {
	parts := cmd.Fields(2)
	if len(parts) == 0 {
		e.reply(ctx, conn, identity, "Settings:\n/settings setwa <PHONE_ID>|<ACCESS_TOKEN>\n/settings setopenai <OPENAI_KEY>\n/settings adduser <+NUMBER>|<ROLE>\n/settings removeuser <+NUMBER>")
		return
	}

	switch strings.ToLower(parts[0]) {
	case "setwa":
		if len(parts) < 2 {
			e.reply(ctx, conn, identity, "Use: /settings setwa PHONE_ID|ACCESS_TOKEN")
			return
		}
		phoneID, token, ok := command.SplitPair(parts[1])
		if !ok || phoneID == "" || token == "" {
			e.reply(ctx, conn, identity, "Use: /settings setwa PHONE_ID|ACCESS_TOKEN")
			return
		}
		// a failed reload keeps the previous client; the process stays up
		if err := e.waCreds.Reload(phoneID, token); err != nil {
			e.logger.Error("WhatsApp credential reload failed", "error", err)
			e.reply(ctx, conn, identity, "Failed to save WhatsApp config. Previous config still active.")
			return
		}
		e.reply(ctx, conn, identity, "WhatsApp config saved.")
	case "setopenai":
		if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
			e.reply(ctx, conn, identity, "Use: /settings setopenai OPENAI_KEY")
			return
		}
		if err := e.speaker.ReloadKey(strings.TrimSpace(parts[1])); err != nil {
			e.logger.Error("OpenAI key reload failed", "error", err)
			e.reply(ctx, conn, identity, "Failed to save OpenAI key. Previous key still active.")
			return
		}
		e.reply(ctx, conn, identity, "OpenAI key saved & loaded.")
	case "adduser":
		if len(parts) < 2 {
			e.reply(ctx, conn, identity, "Use: /settings adduser +NUMBER|ROLE")
			return
		}
		number, roleName, ok := command.SplitPair(parts[1])
		if !ok || number == "" {
			e.reply(ctx, conn, identity, "Use: /settings adduser +NUMBER|ROLE")
			return
		}
		role, ok := directory.ParseRole(roleName)
		if !ok {
			e.reply(ctx, conn, identity, "Role must be teacher, admin or developer.")
			return
		}
		target := directory.Normalize(number)
		if err := e.dir.Upsert(target, role); err != nil {
			e.logger.Error("Directory upsert failed", "identity", target, "error", err)
			e.reply(ctx, conn, identity, "Failed to save authorized user.")
			return
		}
		e.reply(ctx, conn, identity, fmt.Sprintf("Added %s as %s.", target, role))
	case "removeuser":
		if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
			e.reply(ctx, conn, identity, "Use: /settings removeuser +NUMBER")
			return
		}
		target := directory.Normalize(strings.TrimSpace(parts[1]))
		if err := e.dir.Remove(target); err != nil {
			e.logger.Error("Directory remove failed", "identity", target, "error", err)
			e.reply(ctx, conn, identity, "Failed to remove authorized user.")
			return
		}
		e.reply(ctx, conn, identity, fmt.Sprintf("Removed %s.", target))
	default:
		e.reply(ctx, conn, identity, "Unknown settings command.")
	}
}
