package config

import (
	"os"
	"testing"
	"time"

	"herald/internal/campaign"
	"herald/internal/schedule"
	"herald/pkg/logx"
)

func writeOver(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

const sampleMessages = `
messages:
  - id: message1
    protect: true
    life_hours: 24
    text:
      it: "<b>Ciao</b>"
      es: "<b>Hola</b>"
      en: "<b>Hello</b>"
    photos:
      it: ["AgAC-it-1"]
      en: ["AgAC-en-1"]
    videos:
      en: ["BAAC-en-1"]
    buttons:
      - url: "https://example.com"
        label:
          it: "Apri"
          en: "Open"
    schedule: ["SUNDAY", "MONTHLY-07"]
  - id: message2
    text:
      en: "plain"
    schedule: ["MONDAY-2", "NOT-A-PATTERN"]
`

func TestMessageManagerLoad(t *testing.T) {
	path := writeFile(t, "messages.yaml", sampleMessages)
	m := NewMessageManager(path, logx.Nop())
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	msgs := m.Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}

	m1 := msgs[0]
	if m1.ID != "message1" || !m1.Protect || m1.LifeHours != 24 {
		t.Fatalf("message1: %+v", m1)
	}
	if m1.Text[campaign.LangItalian] != "<b>Ciao</b>" {
		t.Fatalf("localized text: %+v", m1.Text)
	}
	if len(m1.Rules) != 2 {
		t.Fatalf("message1 rules: %+v", m1.Rules)
	}
	if m1.Rules[0] != (schedule.Rule{Kind: schedule.Weekly, Weekday: time.Sunday}) {
		t.Fatalf("rule[0]: %+v", m1.Rules[0])
	}

	// The unrecognized token is dropped at load, not kept as a dead rule.
	m2 := msgs[1]
	if len(m2.Rules) != 1 || m2.Rules[0].Kind != schedule.WeeklyNth {
		t.Fatalf("message2 rules: %+v", m2.Rules)
	}
}

func TestMessageManagerRejectsDuplicates(t *testing.T) {
	path := writeFile(t, "messages.yaml", `
messages:
  - id: same
    text: {en: a}
  - id: same
    text: {en: b}
`)
	m := NewMessageManager(path, logx.Nop())
	if err := m.Load(); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestMessageManagerKeepsPreviousOnBadReload(t *testing.T) {
	path := writeFile(t, "messages.yaml", sampleMessages)
	m := NewMessageManager(path, logx.Nop())
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Overwrite with junk; a reload attempt fails but Messages() keeps serving.
	if err := writeOver(path, "messages: [{id: '', text: {en: x}}]"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := m.Load(); err == nil {
		t.Fatal("expected reload error")
	}
	if len(m.Messages()) != 2 {
		t.Fatalf("previous set lost: %d", len(m.Messages()))
	}
}
