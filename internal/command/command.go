package command

import (
	"strings"
	"unicode"
)

// Prefix marks a message as a command
const Prefix = "/"

// Command is a parsed slash command. Name is lowercased; Rest keeps the
// remainder of the message verbatim so announcement bodies and schedule
// names preserve their casing.
type Command struct {
	Name string
	Rest string
}

// Parse splits raw text into a command. The second return is false when
// the text does not carry the command prefix.
func Parse(raw string) (Command, bool) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, Prefix) {
		return Command{}, false
	}

	name := text
	rest := ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		name = text[:i]
		rest = strings.TrimLeftFunc(text[i:], unicode.IsSpace)
	}
	return Command{
		Name: strings.ToLower(strings.TrimPrefix(name, Prefix)),
		Rest: rest,
	}, true
}

// Fields splits Rest on whitespace into at most max parts, so trailing
// free-form arguments stay unsplit. max <= 0 means no bound.
func (c Command) Fields(max int) []string {
	var out []string
	s := strings.TrimSpace(c.Rest)
	for s != "" && (max <= 0 || len(out) < max-1) {
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 {
			break
		}
		out = append(out, s[:i])
		s = strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// SplitPair cuts a "NAME|PAYLOAD" argument on its first pipe, trimming
// both sides. The pipe keeps names and payloads free to contain spaces.
func SplitPair(s string) (string, string, bool) {
	left, right, found := strings.Cut(s, "|")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(left), strings.TrimSpace(right), true
}

// SplitTimes splits a comma-separated time list, dropping empty tokens
func SplitTimes(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// ValidTime reports whether tok is a 24-hour HH:MM clock time
func ValidTime(tok string) bool {
	if len(tok) != 5 || tok[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if tok[i] < '0' || tok[i] > '9' {
			return false
		}
	}
	hour := int(tok[0]-'0')*10 + int(tok[1]-'0')
	minute := int(tok[3]-'0')*10 + int(tok[4]-'0')
	return hour < 24 && minute < 60
}
