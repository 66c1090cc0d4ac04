package campaign

import (
	"strings"

	"herald/internal/transport"
)

// Payload is the per-language view of a Message, ready for the transport.
type Payload struct {
	Text string

	// Media lists album items, photos first, then videos.
	Media []transport.MediaItem

	// Buttons contains only valid buttons, labels already resolved.
	Buttons []transport.Button
}

// Localize resolves the message content for one language group.
// Missing per-language entries fall back to the default-language entry.
func (m *Message) Localize(lang Language) Payload {
	p := Payload{Text: pick(m.Text, lang)}

	for _, ref := range pickList(m.Photos, lang) {
		p.Media = append(p.Media, transport.MediaItem{Kind: transport.MediaPhoto, Ref: ref})
	}
	for _, ref := range pickList(m.Videos, lang) {
		p.Media = append(p.Media, transport.MediaItem{Kind: transport.MediaVideo, Ref: ref})
	}

	for _, b := range m.Buttons {
		if !b.Valid() {
			continue
		}
		p.Buttons = append(p.Buttons, transport.Button{Text: buttonLabel(b, lang), URL: b.URL})
	}
	return p
}

func pick(m map[Language]string, lang Language) string {
	if v, ok := m[lang]; ok && v != "" {
		return v
	}
	return m[LangDefault]
}

func pickList(m map[Language][]string, lang Language) []string {
	if v, ok := m[lang]; ok && len(v) > 0 {
		return v
	}
	return m[LangDefault]
}

func buttonLabel(b Button, lang Language) string {
	if v := strings.TrimSpace(b.Label[lang]); v != "" {
		return v
	}
	if v := strings.TrimSpace(b.Label[LangDefault]); v != "" {
		return v
	}
	// Valid() guarantees at least one non-empty label somewhere.
	for _, v := range b.Label {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
