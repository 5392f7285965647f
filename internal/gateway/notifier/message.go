package notifier

import (
	"strings"
	"time"

	"sentinel/internal/pkg/text"
)

const maxStructuredMessageLen = 3800

// MessageSection is one titled block of a notification.
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage is the common layout of pushed notifications.
type StructuredMessage struct {
	Icon      string
	Title     string
	Fields    []Field
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// Field renders as "Key: `Value`".
type Field struct {
	Key   string
	Value string
}

// RenderMarkdown builds Telegram Markdown, capped in length.
func (m StructuredMessage) RenderMarkdown() string {
	var b strings.Builder
	if header := strings.TrimSpace(strings.TrimSpace(m.Icon) + " " + strings.TrimSpace(m.Title)); header != "" {
		b.WriteString("*" + sanitize(header) + "*\n")
	}
	for _, f := range m.Fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		b.WriteString(sanitize(f.Key) + ": `" + strings.ReplaceAll(f.Value, "`", "'") + "`\n")
	}
	if block := renderSections(m.Sections); block != "" {
		b.WriteString("\n" + block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString("_" + sanitize(footer) + "_\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("Time: " + m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	return text.Truncate(strings.TrimSpace(b.String()), maxStructuredMessageLen)
}

func renderSections(secs []MessageSection) string {
	var b strings.Builder
	for _, sec := range secs {
		lines := sanitizeLines(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(sanitize(title) + "\n")
		}
		for _, line := range lines {
			b.WriteString("- " + sanitize(line) + "\n")
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "```\n" + b.String() + "```\n"
}

func sanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// sanitize keeps user text from closing Markdown spans early.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "```", "'''")
	s = strings.ReplaceAll(s, "*", "")
	return strings.ReplaceAll(s, "_", " ")
}
