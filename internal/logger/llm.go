package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	llmMu          sync.Mutex
	llmLog         *log.Logger
	llmDumpPayload bool
)

// SetLLMWriter enables the prompt/response exchange log. A nil writer
// disables it.
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

func EnableLLMPayloadDump(enabled bool) {
	llmMu.Lock()
	llmDumpPayload = enabled
	llmMu.Unlock()
}

type llmSection struct {
	title string
	body  string
}

func writeLLM(tags []string, sections []llmSection) {
	llmMu.Lock()
	l := llmLog
	llmMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			b.WriteString("[" + tag + "]")
		}
	}
	b.WriteString("\n")
	for _, sec := range sections {
		title := sec.title
		if title == "" {
			title = "CONTENT"
		}
		b.WriteString("--- " + title + " ---\n")
		b.WriteString(sec.body)
		if !strings.HasSuffix(sec.body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

// LogLLMRequest records an outgoing prompt. purpose names the pipeline
// stage (pro, con, arbiter).
func LogLLMRequest(provider, purpose, system, user, payload string) {
	sections := []llmSection{{"SYSTEM", system}, {"USER", user}}
	llmMu.Lock()
	dump := llmDumpPayload
	llmMu.Unlock()
	if dump && strings.TrimSpace(payload) != "" {
		sections = append(sections, llmSection{"PAYLOAD", payload})
	}
	writeLLM([]string{"request", provider, purpose}, sections)
}

func LogLLMResponse(provider, purpose, raw string) {
	writeLLM([]string{"response", provider, purpose}, []llmSection{{"RAW", raw}})
}
