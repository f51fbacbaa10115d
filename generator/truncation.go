package generator

import "strings"

// ReportTrailer closes every RESPONSE.md transcript written by the publisher.
const ReportTrailer = "*Generated by OpenRouter CLI*"

// IsTruncated reports whether text looks cut off mid-generation.
// All checks are plain substring scans so large outputs stay linear.
func IsTruncated(text string) bool {
	if text == "" {
		return false
	}
	if strings.Contains(text, ReportTrailer) {
		return true
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "---" || strings.HasSuffix(trimmed, "\n---") {
		return true
	}

	lower := asciiLower(text)
	if i := lastHTMLFence(lower); i >= 0 && !strings.Contains(lower[i:], "</html>") {
		return true
	}
	if i := strings.LastIndex(lower, "<html"); i >= 0 && !strings.Contains(lower[i:], "</html>") {
		return true
	}
	return false
}

// lastHTMLFence returns the offset of the last code fence that opens an HTML
// document, either tagged ```html or a bare ``` followed by markup, or -1.
func lastHTMLFence(lower string) int {
	end := len(lower)
	for end > 0 {
		i := strings.LastIndex(lower[:end], "```")
		if i < 0 {
			return -1
		}
		if opensHTML(lower[i+3:]) {
			return i
		}
		end = i
	}
	return -1
}

func opensHTML(rest string) bool {
	if strings.HasPrefix(rest, "html") {
		return true
	}
	rest = strings.TrimLeft(rest, " \t\r\n")
	return strings.HasPrefix(rest, "<!doctype") || strings.HasPrefix(rest, "<html")
}
