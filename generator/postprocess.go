package generator

import (
	"fmt"
	"regexp"
	"strings"
)

// All patterns are RE2, so matching stays linear in the input size.
var (
	fencedDocRe  = regexp.MustCompile("(?is)```(?:html)?\\s*(<!doctype\\s+html[^>]*>.*?</html\\s*>)\\s*```")
	doctypeDocRe = regexp.MustCompile(`(?is)<!doctype\s+html[^>]*>.*?</html\s*>`)
	htmlDocRe    = regexp.MustCompile(`(?is)<html\b[^>]*>.*?</html\s*>`)
	openTagRe    = regexp.MustCompile(`(?i)<([a-z][a-z0-9-]*)\b[^>]*>`)
)

const shellTitle = "Generated Demo"

// ExtractHTML pulls the HTML document out of free-form model output. It never
// fails: when nothing usable is found the text is escaped into a fallback page.
func ExtractHTML(text string) string {
	if m := fencedDocRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := doctypeDocRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	if m := htmlDocRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	if span, ok := balancedSpan(text); ok {
		return documentShell(span)
	}
	return documentShell(fmt.Sprintf("<h1>%s</h1>\n<pre>%s</pre>", shellTitle, escapeHTML(strings.ToValidUTF8(text, "\uFFFD"))))
}

// balancedSpan finds the first <tag ...> that has a matching </tag> later on and
// returns the shortest such span.
func balancedSpan(text string) (string, bool) {
	lower := asciiLower(text)
	missing := map[string]bool{}
	for _, loc := range openTagRe.FindAllStringSubmatchIndex(text, -1) {
		name := lower[loc[2]:loc[3]]
		if missing[name] {
			continue
		}
		closing := "</" + name + ">"
		i := strings.Index(lower[loc[1]:], closing)
		if i < 0 {
			// no closer after this opener means none after any later one either
			missing[name] = true
			continue
		}
		end := loc[1] + i + len(closing)
		return strings.TrimSpace(text[loc[0]:end]), true
	}
	return "", false
}

// asciiLower lowercases A-Z only, so byte offsets into the result are valid
// offsets into s.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func documentShell(body string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString("<title>" + shellTitle + "</title>\n")
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(body)
	sb.WriteString("\n</body>\n</html>")
	return sb.String()
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
