package campaign

import (
	"strings"
	"time"

	"herald/internal/schedule"
)

// Language is one of the supported localization groups.
type Language string

const (
	LangItalian Language = "it"
	LangSpanish Language = "es"
	// LangDefault covers English and every unclassified language code.
	LangDefault Language = "en"
)

// ClassifyLanguage maps a raw Telegram language code onto a supported group.
// Classification is prefix-based: "it-IT" is Italian, "es-419" is Spanish,
// everything else falls into the default group.
func ClassifyLanguage(code string) Language {
	c := strings.ToLower(strings.TrimSpace(code))
	switch {
	case strings.HasPrefix(c, "it"):
		return LangItalian
	case strings.HasPrefix(c, "es"):
		return LangSpanish
	default:
		return LangDefault
	}
}

// Recipient is one addressable end-user of the messaging transport.
type Recipient struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	StartedAt    time.Time
}

// Language returns the recipient's localization group.
func (r Recipient) Language() Language { return ClassifyLanguage(r.LanguageCode) }

// Button is a call-to-action link shown under a message.
type Button struct {
	Label map[Language]string `yaml:"label"`
	URL   string              `yaml:"url"`
}

// Valid reports whether the button can be sent: it needs a URL and at least
// one non-empty label.
func (b Button) Valid() bool {
	if strings.TrimSpace(b.URL) == "" {
		return false
	}
	for _, v := range b.Label {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Message is one configured broadcast unit. It is authored in the message
// definitions file and read-only to the engine.
type Message struct {
	ID string `yaml:"id"`

	// Localized HTML text, photo file references and video file references.
	// The default-language entry doubles as the fallback.
	Text   map[Language]string   `yaml:"text"`
	Photos map[Language][]string `yaml:"photos"`
	Videos map[Language][]string `yaml:"videos"`

	// Protect forwards Telegram's protect_content flag onto every send.
	Protect bool `yaml:"protect"`

	Buttons []Button `yaml:"buttons"`

	// Schedule holds the raw recurrence tokens as authored
	// (e.g. "FRIDAY", "MONDAY-2", "MONTHLY-07").
	Schedule []string `yaml:"schedule"`

	// LifeHours is the retention window for delivered copies.
	// 0 means delivered messages are never auto-removed.
	LifeHours int `yaml:"life_hours"`

	// Rules is the parsed form of Schedule, computed once at load time.
	Rules []schedule.Rule `yaml:"-"`
}

// Outcome records one delivery attempt for one (message, recipient) pair.
// It lives only for the duration of a run and feeds the report.
type Outcome struct {
	RecipientID int64
	Username    string
	Success     bool
	Language    Language
	Error       string

	// MessageIDs are transport-assigned ids of everything delivered,
	// kept so retention expiry can delete them later.
	MessageIDs []int
}

// Report aggregates delivery statistics over one message's run.
//
// Invariants: Success + Failed == Total, and the three reached counts
// sum to Success.
type Report struct {
	MessageID  string    `json:"messageId"`
	At         time.Time `json:"timestamp"`
	Total      int       `json:"totalUsers"`
	Success    int       `json:"successCount"`
	Failed     int       `json:"failedCount"`
	SuccessPct float64   `json:"successPercentage"`

	ItalianReached int     `json:"italianReached"`
	ItalianPct     float64 `json:"italianPercentage"`
	SpanishReached int     `json:"spanishReached"`
	SpanishPct     float64 `json:"spanishPercentage"`
	OtherReached   int     `json:"otherReached"`
	OtherPct       float64 `json:"otherPercentage"`
}
