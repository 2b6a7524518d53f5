package app

import (
	"strings"
	"unicode/utf16"

	"github.com/pscheid92/codedrop/internal/domain"
)

// Reconstruct returns the message text followed by one "\n<label>: <url>" line per text link.
// Annotation ranges index the original text in UTF-16 code units; out-of-range annotations are skipped.
func Reconstruct(ev domain.InboundEvent) string {
	base := baseText(ev)

	var b strings.Builder
	b.WriteString(base)

	var units []uint16
	encoded := false
	for _, a := range ev.Annotations {
		if a.Kind != domain.AnnotationTextLink {
			continue
		}
		if !encoded {
			units = utf16.Encode([]rune(base))
			encoded = true
		}
		if a.Offset < 0 || a.Length < 0 || a.Offset > len(units) || a.Length > len(units)-a.Offset {
			continue
		}

		b.WriteByte('\n')
		b.WriteString(string(utf16.Decode(units[a.Offset : a.Offset+a.Length])))
		b.WriteString(": ")
		b.WriteString(a.URL)
	}

	return b.String()
}

func baseText(ev domain.InboundEvent) string {
	switch {
	case ev.Text != "":
		return ev.Text
	case ev.AltText != "":
		return ev.AltText
	default:
		return ev.Caption
	}
}
