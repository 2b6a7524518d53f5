package app

import (
	"regexp"
	"strings"
)

var (
	codePattern        = regexp.MustCompile(`(?i)^code\s*:\s*(\S*)`)
	valuePattern       = regexp.MustCompile(`(?i)^value\s*:\s*(.*)$`)
	requirementPattern = regexp.MustCompile(`(?i)^requirement\s*:\s*(.*)$`)

	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Fields holds the values extracted from a message. Nil means the field was not found.
type Fields struct {
	Code        *string
	Value       *string
	Requirement *string
}

// ExtractFields scans text line by line for "Code:", "Value:" and "Requirement:" labels.
// The first non-blank unlabelled line is taken as the code while no code is known yet;
// an explicit "Code:" line always overrides it.
func ExtractFields(text string) Fields {
	var f Fields

	text = strings.TrimSpace(lineEndings.Replace(text))
	if text == "" {
		return f
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if m := codePattern.FindStringSubmatch(line); m != nil {
			assign(&f.Code, m[1])
			continue
		}
		if m := valuePattern.FindStringSubmatch(line); m != nil {
			assign(&f.Value, m[1])
			continue
		}
		if m := requirementPattern.FindStringSubmatch(line); m != nil {
			assign(&f.Requirement, m[1])
			continue
		}

		if line != "" && f.Code == nil {
			code := line
			f.Code = &code
		}
	}

	return f
}

// assign sets *dst unless v is blank; a label without content leaves the field untouched.
func assign(dst **string, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	*dst = &v
}
