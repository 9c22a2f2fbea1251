package intake

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tomerlevy/claimdesk/internal/session"
)

// Inline directives the assistant may embed in its text. The renderer strips
// them before display and shows the matching affordance on that message only.
//
//	[BUTTONS: label:value|label:value]
//	[FORM: formType]
var (
	buttonsRe = regexp.MustCompile(`\[BUTTONS:\s*([^\]]+)\]`)
	formRe    = regexp.MustCompile(`\[FORM:\s*([\w-]+)\]`)
)

// ButtonOption is one quick-reply choice.
type ButtonOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ParseButtons extracts quick-reply options from assistant text. Options are
// pipe-separated "label:value" pairs; a bare label doubles as its value.
func ParseButtons(text string) []ButtonOption {
	m := buttonsRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	parts := strings.Split(m[1], "|")
	options := make([]ButtonOption, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, value, found := strings.Cut(part, ":")
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if !found || strings.TrimSpace(value) == "" {
			value = label
		}
		options = append(options, ButtonOption{Label: label, Value: strings.TrimSpace(value)})
	}
	if len(options) == 0 {
		return nil
	}
	return options
}

// ParseForm extracts the form type directive, if any.
func ParseForm(text string) string {
	m := formRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// StripDirectives removes directive tokens from assistant text.
func StripDirectives(text string) string {
	text = buttonsRe.ReplaceAllString(text, "")
	return formRe.ReplaceAllString(text, "")
}

// documentReadyMessage replaces a message whose visible text was consumed
// entirely by structured output.
const documentReadyMessage = "המסמך שלך מוכן! אפשר להמשיך לתשלום ולהורדה."

const minVisibleRunes = 20

// CleanDisplay prepares assistant text for rendering: fenced structured
// blocks, bare JSON tails, and directive tokens are removed. If stripping
// leaves almost nothing while the message carried a terminal payload, the
// canned ready line is shown instead.
func CleanDisplay(text string, serviceType session.ServiceType) string {
	terminal := HasTerminalMarker(text, serviceType)

	cleaned := fencedBlockRe.ReplaceAllString(text, "")
	cleaned = StripDirectives(cleaned)
	cleaned = stripJSONTail(cleaned)
	cleaned = collapseBlankLines(cleaned)

	if terminal && len([]rune(cleaned)) < minVisibleRunes {
		return documentReadyMessage
	}
	return cleaned
}

// stripJSONTail removes a trailing bare JSON object the model sometimes
// emits without a fence.
func stripJSONTail(text string) string {
	trimmed := strings.TrimSpace(text)
	idx := strings.Index(trimmed, "{")
	if idx < 0 {
		return trimmed
	}
	tail := trimmed[idx:]
	if json.Valid([]byte(tail)) {
		return strings.TrimSpace(trimmed[:idx])
	}
	return trimmed
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
