package bell

import (
	"strings"
	"time"

	"github.com/jothihub/jothi-gateway/internal/config"
)

// Assembly resolves the day's assembly material from config
type Assembly struct {
	days       map[time.Weekday]config.AssemblyDay
	AnthemFile string
	Extra1File string
	Extra2File string
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NewAssembly builds the lookup from the audio config section
func NewAssembly(cfg config.AudioConfig) *Assembly {
	a := &Assembly{
		days:       make(map[time.Weekday]config.AssemblyDay),
		AnthemFile: cfg.AnthemFile,
		Extra1File: cfg.Extra1File,
		Extra2File: cfg.Extra2File,
	}
	for name, day := range cfg.Assembly {
		if wd, ok := weekdayNames[strings.ToLower(name)]; ok {
			a.days[wd] = day
		}
	}
	return a
}

// Today returns the assembly material for the given moment
func (a *Assembly) Today(now time.Time) (config.AssemblyDay, bool) {
	day, ok := a.days[now.Weekday()]
	return day, ok
}
